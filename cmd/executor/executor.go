package executor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"lotengine/src/database"
	"lotengine/src/engine"
	"lotengine/src/executors"
	"lotengine/src/feeds"
	"lotengine/src/locker"
	"lotengine/src/repository"
)

type Executor struct{}

func (t *Executor) Start() error {
	config := executors.GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	engineConfig := config.EngineConfig()
	if err := engineConfig.Validate(); err != nil {
		return err
	}

	scopes, err := executors.ParseScopes(config.Scopes)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return errors.New("SCOPES not set")
	}

	feed, err := feeds.New(feeds.GetConfig())
	if err != nil {
		return err
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	log := logrus.WithField("cmd", "executor")
	trades := repository.NewTradeRepository()
	sink := engine.MultiSink{
		engine.NewLogSink(log),
		engine.MetricsSink{},
		engine.NewStoreSink(repository.NewExitDecisionRepository()),
	}
	eng := engine.New(
		engineConfig,
		trades,
		repository.NewPoolStateRepository(),
		sink,
		locker.New(config.LockLeaseTTL, log),
		engine.WithExceptionRecorder(repository.NewExceptionRepository()),
		engine.WithLogger(log),
	)

	var orders executors.OrderSink = executors.NewLogSink()
	if config.DryRun {
		orders = executors.NewPaperSink(trades)
	}

	if port := GetConfig().MetricsPort; port != "" {
		go serveMetrics(":" + port)
	}

	log.WithFields(logrus.Fields{
		"scopes":  len(scopes),
		"dry_run": config.DryRun,
	}).Info("Starting exit executor")

	runner := executors.NewRunner(config, eng, feed, orders, scopes)
	if err := executors.StartLoop(ctx, config.Schedule, runner); err != nil {
		log.WithError(err).Error("Failed to start evaluation loop")
		return err
	}

	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logrus.Infof("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Metrics server stopped")
	}
}
