package repository_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/ribslabs/ribs/internal/adapters/repository"
	"github.com/ribslabs/ribs/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ts(offset time.Duration) time.Time {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset)
}

func TestMemorySampleStore(t *testing.T) {
	Convey("Given an empty in-memory sample store", t, func() {
		ctx := context.Background()
		store := repository.NewMemorySampleStore()

		Convey("Latest reports no record", func() {
			_, ok, err := store.Latest(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("RangeSince returns an empty slice", func() {
			out, err := store.RangeSince(ctx, ts(0))
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When samples are appended out of order", func() {
			So(store.Append(ctx, model.Sample{TS: ts(2 * time.Minute), Probability: 0.7, Label: model.LabelSlouch}), ShouldBeNil)
			So(store.Append(ctx, model.Sample{TS: ts(0), Probability: 0.2, Label: model.LabelGood}), ShouldBeNil)
			So(store.Append(ctx, model.Sample{TS: ts(1 * time.Minute), Probability: 0.4, Label: model.LabelGood}), ShouldBeNil)

			Convey("Latest returns the maximum timestamp", func() {
				latest, ok, err := store.Latest(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(latest.TS, ShouldEqual, ts(2*time.Minute))
				So(latest.Probability, ShouldEqual, 0.7)
			})

			Convey("RangeSince filters and sorts ascending", func() {
				out, err := store.RangeSince(ctx, ts(1*time.Minute))
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].TS, ShouldEqual, ts(1*time.Minute))
				So(out[1].TS, ShouldEqual, ts(2*time.Minute))
			})

			Convey("RangeSince includes the cutoff itself", func() {
				out, err := store.RangeSince(ctx, ts(2*time.Minute))
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 1)
			})

			Convey("Recent returns descending order", func() {
				out, err := store.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 3)
				So(out[0].TS, ShouldEqual, ts(2*time.Minute))
				So(out[2].TS, ShouldEqual, ts(0))
			})

			Convey("Recent honors the requested limit", func() {
				out, err := store.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].TS, ShouldEqual, ts(2*time.Minute))
			})

			Convey("Count reflects the appends", func() {
				So(store.Count(ctx), ShouldEqual, 3)
			})

			Convey("Clear removes everything", func() {
				So(store.Clear(ctx), ShouldBeNil)
				So(store.Count(ctx), ShouldEqual, 0)
				_, ok, _ := store.Latest(ctx)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When two samples share a timestamp", func() {
			So(store.Append(ctx, model.Sample{TS: ts(0), Probability: 0.1, Label: model.LabelGood}), ShouldBeNil)
			So(store.Append(ctx, model.Sample{TS: ts(0), Probability: 0.9, Label: model.LabelSlouch}), ShouldBeNil)

			Convey("Latest prefers the most recent insertion", func() {
				latest, ok, err := store.Latest(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(latest.Probability, ShouldEqual, 0.9)
			})

			Convey("Recent puts the most recent insertion first", func() {
				out, err := store.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(out[0].Probability, ShouldEqual, 0.9)
				So(out[1].Probability, ShouldEqual, 0.1)
			})
		})
	})
}

func TestMemorySampleStoreRecentCap(t *testing.T) {
	Convey("Given a store with more records than the hard cap", t, func() {
		ctx := context.Background()
		store := repository.NewMemorySampleStore()
		for i := 0; i < repository.MaxRecentLimit+50; i++ {
			So(store.Append(ctx, model.Sample{TS: ts(time.Duration(i) * time.Second), Probability: 0.5, Label: model.LabelGood}), ShouldBeNil)
		}

		Convey("Recent never exceeds the cap, whatever the caller asks for", func() {
			out, err := store.Recent(ctx, 10_000)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, repository.MaxRecentLimit)
		})

		Convey("A non-positive limit degrades to one record", func() {
			out, err := store.Recent(ctx, 0)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 1)
		})
	})
}

func TestMemoryEventStore(t *testing.T) {
	Convey("Given an empty in-memory event store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryEventStore()

		Convey("Latest reports no record", func() {
			_, ok, err := store.Latest(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When transition events are appended", func() {
			So(store.Append(ctx, model.Event{TS: ts(0), Type: model.EventEnterSlouch, Probability: 0.8}), ShouldBeNil)
			So(store.Append(ctx, model.Event{TS: ts(time.Minute), Type: model.EventExitSlouch, Probability: 0.3}), ShouldBeNil)

			Convey("Recent returns newest first with types intact", func() {
				out, err := store.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].Type, ShouldEqual, model.EventExitSlouch)
				So(out[1].Type, ShouldEqual, model.EventEnterSlouch)
			})

			Convey("RangeSince is ascending", func() {
				out, err := store.RangeSince(ctx, ts(0))
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].Type, ShouldEqual, model.EventEnterSlouch)
			})

			Convey("Count and Clear behave like the sample store", func() {
				So(store.Count(ctx), ShouldEqual, 2)
				So(store.Clear(ctx), ShouldBeNil)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}
