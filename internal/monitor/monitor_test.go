package monitor_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	"github.com/ribslabs/ribs/internal/domain/model"
	"github.com/ribslabs/ribs/internal/domain/predict"
	"github.com/ribslabs/ribs/internal/monitor"
	"github.com/ribslabs/ribs/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// countingIngester records how often the loop sampled.
type countingIngester struct {
	calls atomic.Int64
	err   error
}

func (c *countingIngester) IngestLive(_ context.Context, _ capture.Source, _ predict.Predictor) (model.Sample, bool, error) {
	c.calls.Add(1)
	if c.err != nil {
		return model.Sample{}, false, c.err
	}
	return model.Sample{Probability: 0.5, Label: model.LabelGood}, true, nil
}

func TestRunnerRun(t *testing.T) {
	Convey("Given a monitoring runner with a short interval", t, func() {
		source := capture.NewSyntheticSource()
		predictor := predict.NewSimulated()

		Convey("It samples immediately and then on every tick", func() {
			ingester := &countingIngester{}
			r := monitor.New(ingester, source, predictor, monitor.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			So(r.Run(ctx), ShouldBeNil)

			So(ingester.calls.Load(), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("Ingestion failures do not stop the loop", func() {
			ingester := &countingIngester{err: errors.New("primary down")}
			r := monitor.New(ingester, source, predictor, monitor.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
			defer cancel()
			So(r.Run(ctx), ShouldBeNil)

			So(ingester.calls.Load(), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("A cancelled context stops it promptly", func() {
			ingester := &countingIngester{}
			r := monitor.New(ingester, source, predictor, monitor.WithInterval(time.Hour))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan error, 1)
			go func() { done <- r.Run(ctx) }()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(time.Second):
				t.Fatal("runner did not stop on cancellation")
			}
			So(ingester.calls.Load(), ShouldEqual, 1)
		})
	})
}
