package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	repository "github.com/ribslabs/ribs/internal/adapters/repository"
	app "github.com/ribslabs/ribs/internal/app"
	"github.com/ribslabs/ribs/internal/config"
	"github.com/ribslabs/ribs/internal/domain/predict"
	"github.com/ribslabs/ribs/internal/monitor"
	"github.com/ribslabs/ribs/pkg/logger"
)

func main() {
	var (
		live         = flag.Bool("live", false, "Capture frames from the snapshot file instead of the synthetic source")
		snapshot     = flag.String("snapshot", "/tmp/ribs-frame.jpg", "Snapshot file maintained by the external frame grabber")
		modelURL     = flag.String("model-url", "", "HTTP model server URL; empty uses the simulated predictor")
		interval     = flag.Duration("interval", 0, "Sampling interval; zero uses the configured default")
		checkCapture = flag.Bool("test-capture", false, "Check frame capture once and exit")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	source := buildSource(*live, *snapshot)

	if *checkCapture {
		if _, ok := source.Frame(ctx); !ok {
			log.Error(ctx, "no frame available", logger.String("snapshot", *snapshot))
			os.Exit(1)
		}
		log.Info(ctx, "frame capture ok")
		return
	}

	samples, events, backend := buildStores(ctx, cfg, log)

	svc := app.New(
		app.WithLogger(log),
		app.WithThreshold(cfg.SlouchThreshold),
		app.WithStores(samples, events),
		app.WithBackendName(backend),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	loopInterval := time.Duration(cfg.SampleIntervalSeconds) * time.Second
	if *interval > 0 {
		loopInterval = *interval
	}

	runner := monitor.New(svc, source, buildPredictor(*modelURL),
		monitor.WithInterval(loopInterval),
		monitor.WithLogger(log),
	)
	if err := runner.Run(ctx); err != nil {
		log.Error(ctx, "monitoring loop failed", logger.Error(err))
	}
}

func buildSource(live bool, snapshot string) capture.Source {
	if live {
		return capture.NewFileSource(snapshot)
	}
	return capture.NewSyntheticSource()
}

func buildPredictor(modelURL string) predict.Predictor {
	if modelURL != "" {
		return predict.NewRemote(modelURL)
	}
	return predict.NewSimulated()
}

// buildStores mirrors the server's backend selection so the monitor
// writes to the same database the dashboard reads from.
func buildStores(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.SampleStore, repository.EventStore, string) {
	connect := repository.ConnectConfig{
		URI:      cfg.MongoURI,
		Username: cfg.MongoUsername,
		Password: cfg.MongoPassword,
		Host:     cfg.MongoHost,
		AppName:  cfg.MongoAppName,
		Database: cfg.MongoDB,
	}

	if !connect.HasCredentials() {
		log.Warn(ctx, "no mongo credentials; samples stay in this process only")
		return repository.NewMemorySampleStore(), repository.NewMemoryEventStore(), "memory"
	}

	db, err := repository.Connect(ctx, connect)
	if err != nil {
		log.Warn(ctx, "mongo unreachable; samples stay in this process only", logger.Error(err))
		return repository.NewMemorySampleStore(), repository.NewMemoryEventStore(), "memory"
	}
	return repository.NewMongoSampleStore(db), repository.NewMongoEventStore(db), "mongo"
}
