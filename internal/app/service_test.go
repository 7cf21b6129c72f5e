package service_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	repository "github.com/ribslabs/ribs/internal/adapters/repository"
	app "github.com/ribslabs/ribs/internal/app"
	"github.com/ribslabs/ribs/internal/domain/model"
	"github.com/ribslabs/ribs/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// newService builds a started service over fresh in-memory stores.
func newService(t *testing.T, opts ...app.Option) (*app.Service, *repository.MemorySampleStore, *repository.MemoryEventStore) {
	t.Helper()
	samples := repository.NewMemorySampleStore()
	events := repository.NewMemoryEventStore()
	opts = append([]app.Option{
		app.WithThreshold(0.6),
		app.WithStores(samples, events),
	}, opts...)
	svc := app.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc, samples, events
}

// Capture/predictor stubs for the live path.

type stubSource struct {
	frame capture.Frame
	ok    bool
}

func (s *stubSource) Frame(_ context.Context) (capture.Frame, bool) { return s.frame, s.ok }

type stubPredictor struct {
	probability float64
	ok          bool
}

func (s *stubPredictor) Predict(_ context.Context, _ capture.Frame) (float64, bool) {
	return s.probability, s.ok
}

// failingEventStore rejects all appends.
type failingEventStore struct {
	*repository.MemoryEventStore
}

func (s *failingEventStore) Append(_ context.Context, _ model.Event) error {
	return errors.New("events collection unreachable")
}

func TestIngest(t *testing.T) {
	Convey("Given a posture service with threshold 0.6", t, func() {
		ctx := context.Background()
		svc, samples, events := newService(t)

		Convey("Ingesting into an empty store never produces an event", func() {
			for _, p := range []float64{0.1, 0.9} {
				So(events.Clear(ctx), ShouldBeNil)
				So(samples.Clear(ctx), ShouldBeNil)
				_, err := svc.Ingest(ctx, p)
				So(err, ShouldBeNil)
				So(events.Count(ctx), ShouldEqual, 0)
			}
		})

		Convey("The first sample is stored with the derived label", func() {
			sample, err := svc.Ingest(ctx, 0.73)
			So(err, ShouldBeNil)
			So(sample.Label, ShouldEqual, model.LabelSlouch)
			So(sample.TS.Nanosecond(), ShouldEqual, 0)

			Convey("And it reads back with the same probability", func() {
				latest, ok, err := svc.Latest(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(latest.Probability, ShouldAlmostEqual, 0.73, 1e-9)
				So(latest.Label, ShouldEqual, model.LabelSlouch)
			})
		})

		Convey("Two samples with the same label emit no second event", func() {
			_, err := svc.Ingest(ctx, 0.2)
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, 0.8)
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, 0.9)
			So(err, ShouldBeNil)

			So(events.Count(ctx), ShouldEqual, 1)
			recent, err := events.Recent(ctx, 10)
			So(err, ShouldBeNil)
			So(recent[0].Type, ShouldEqual, model.EventEnterSlouch)
		})

		Convey("good -> slouch -> good produces enter then exit", func() {
			_, err := svc.Ingest(ctx, 0.1)
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, 0.9)
			So(err, ShouldBeNil)
			_, err = svc.Ingest(ctx, 0.1)
			So(err, ShouldBeNil)

			all, err := events.RangeSince(ctx, time.Time{})
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
			So(all[0].Type, ShouldEqual, model.EventEnterSlouch)
			So(all[1].Type, ShouldEqual, model.EventExitSlouch)
		})

		Convey("The event carries the triggering sample's probability and timestamp", func() {
			_, err := svc.Ingest(ctx, 0.1)
			So(err, ShouldBeNil)
			sample, err := svc.Ingest(ctx, 0.85)
			So(err, ShouldBeNil)

			recent, err := events.Recent(ctx, 1)
			So(err, ShouldBeNil)
			So(recent[0].Probability, ShouldAlmostEqual, 0.85, 1e-9)
			So(recent[0].TS, ShouldEqual, sample.TS)
		})

		Convey("Malformed probabilities are rejected before any write", func() {
			for _, p := range []float64{-0.5, 1.5, math.NaN(), math.Inf(1)} {
				_, err := svc.Ingest(ctx, p)
				So(errors.Is(err, model.ErrInvalidProbability), ShouldBeTrue)
			}
			So(samples.Count(ctx), ShouldEqual, 0)
			So(events.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestIngestPartialFailure(t *testing.T) {
	Convey("Given an event store that rejects writes", t, func() {
		ctx := context.Background()
		samples := repository.NewMemorySampleStore()
		events := &failingEventStore{repository.NewMemoryEventStore()}
		svc := app.New(
			app.WithThreshold(0.6),
			app.WithStores(samples, events),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a transition should be recorded", func() {
			_, err := svc.Ingest(ctx, 0.1)
			So(err, ShouldBeNil)
			sample, err := svc.Ingest(ctx, 0.9)

			Convey("Then the error surfaces but the sample stays written", func() {
				So(err, ShouldNotBeNil)
				So(sample.Label, ShouldEqual, model.LabelSlouch)
				So(samples.Count(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestIngestLive(t *testing.T) {
	Convey("Given a posture service", t, func() {
		ctx := context.Background()
		svc, samples, events := newService(t)

		Convey("When capture yields no frame", func() {
			_, produced, err := svc.IngestLive(ctx, &stubSource{ok: false}, &stubPredictor{probability: 0.9, ok: true})

			Convey("Then nothing is produced and neither store is touched", func() {
				So(err, ShouldBeNil)
				So(produced, ShouldBeFalse)
				So(samples.Count(ctx), ShouldEqual, 0)
				So(events.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When prediction yields nothing", func() {
			_, produced, err := svc.IngestLive(ctx, &stubSource{frame: capture.Frame{1}, ok: true}, &stubPredictor{ok: false})

			Convey("Then nothing is produced and neither store is touched", func() {
				So(err, ShouldBeNil)
				So(produced, ShouldBeFalse)
				So(samples.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When capture and prediction both succeed", func() {
			sample, produced, err := svc.IngestLive(ctx, &stubSource{frame: capture.Frame{1}, ok: true}, &stubPredictor{probability: 0.7, ok: true})

			Convey("Then the sample is ingested through the classifier", func() {
				So(err, ShouldBeNil)
				So(produced, ShouldBeTrue)
				So(sample.Label, ShouldEqual, model.LabelSlouch)
				So(samples.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestQueries(t *testing.T) {
	Convey("Given a posture service with seeded samples", t, func() {
		ctx := context.Background()
		svc, samples, events := newService(t)
		now := time.Now().UTC().Truncate(time.Second)

		So(samples.Append(ctx, model.Sample{TS: now.Add(-2 * time.Minute), Probability: 0.3, Label: model.LabelGood}), ShouldBeNil)
		So(samples.Append(ctx, model.Sample{TS: now.Add(-1 * time.Minute), Probability: 0.7, Label: model.LabelSlouch}), ShouldBeNil)

		Convey("A five-minute window contains both samples, ascending", func() {
			series, since, err := svc.Series(ctx, 5*time.Minute)
			So(err, ShouldBeNil)
			So(len(series), ShouldEqual, 2)
			So(series[0].TS.Before(series[1].TS), ShouldBeTrue)
			So(since.After(now.Add(-6*time.Minute)), ShouldBeTrue)
		})

		Convey("A thirty-second window contains neither", func() {
			series, _, err := svc.Series(ctx, 30*time.Second)
			So(err, ShouldBeNil)
			So(series, ShouldBeEmpty)
		})

		Convey("A non-positive window falls back to the default", func() {
			series, since, err := svc.Series(ctx, 0)
			So(err, ShouldBeNil)
			So(len(series), ShouldEqual, 2)
			So(since, ShouldHappenOnOrBetween, now.Add(-30*time.Minute), now.Add(-29*time.Minute))
		})

		Convey("Latest returns the newest sample", func() {
			latest, ok, err := svc.Latest(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(latest.Probability, ShouldEqual, 0.7)
		})

		Convey("RecentEvents caps and defaults its limit", func() {
			for i := 0; i < 40; i++ {
				So(events.Append(ctx, model.Event{TS: now.Add(time.Duration(i) * time.Second), Type: model.EventEnterSlouch, Probability: 0.8}), ShouldBeNil)
			}

			Convey("A zero limit uses the default of 25", func() {
				out, err := svc.RecentEvents(ctx, 0)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 25)
			})

			Convey("An explicit limit is honored", func() {
				out, err := svc.RecentEvents(ctx, 5)
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 5)
				So(out[0].TS.After(out[4].TS), ShouldBeTrue)
			})

			Convey("The hard cap bounds huge limits", func() {
				out, err := svc.RecentEvents(ctx, 100_000)
				So(err, ShouldBeNil)
				So(len(out), ShouldBeLessThanOrEqualTo, repository.MaxRecentLimit)
			})
		})
	})

	Convey("Given an empty posture service", t, func() {
		ctx := context.Background()
		svc, _, _ := newService(t)

		Convey("Latest reports no data without error", func() {
			_, ok, err := svc.Latest(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestRecordEvent(t *testing.T) {
	Convey("Given a posture service", t, func() {
		ctx := context.Background()
		svc, _, events := newService(t)

		Convey("Direct event writes bypass the classifier", func() {
			So(svc.RecordEvent(ctx, model.EventEnterSlouch, 0.9), ShouldBeNil)
			So(events.Count(ctx), ShouldEqual, 1)
		})

		Convey("An empty type is defaulted", func() {
			So(svc.RecordEvent(ctx, "", 0.5), ShouldBeNil)
			recent, err := events.Recent(ctx, 1)
			So(err, ShouldBeNil)
			So(string(recent[0].Type), ShouldEqual, "event")
		})

		Convey("Malformed probabilities are rejected", func() {
			err := svc.RecordEvent(ctx, model.EventExitSlouch, math.NaN())
			So(errors.Is(err, model.ErrInvalidProbability), ShouldBeTrue)
			So(events.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given a started posture service", t, func() {
		ctx := context.Background()
		svc, _, _ := newService(t, app.WithBackendName("memory"))

		_, err := svc.Ingest(ctx, 0.7)
		So(err, ShouldBeNil)

		Convey("Stats expose counts, backend, and threshold", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["backend"], ShouldEqual, "memory")
			So(stats["threshold"], ShouldEqual, 0.6)
			So(stats["samples"], ShouldEqual, 1)
			So(stats["events"], ShouldEqual, 0)
		})
	})
}
