package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"lotengine/cmd/executor"
	"lotengine/cmd/reconcile"
	"lotengine/src/database"
	"lotengine/src/executors"
	"lotengine/src/model"
	"lotengine/src/repository"
	"lotengine/src/server"
)

var Version string

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()
	setupLogger()

	app := cli.NewApp()
	app.Name = "lotengine"
	app.Usage = "Lot accounting and exit management"
	app.Version = Version

	app.Commands = []cli.Command{
		executorCMD,
		reconcileCMD,
		serveCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger() {
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

var (
	executorCMD = cli.Command{
		Name:        "executor",
		Usage:       "run the exit executor",
		Action:      executorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Evaluate every scope in SCOPES on EVAL_SCHEDULE and hand sell orders to the order sink`,
	}
	reconcileCMD = cli.Command{
		Name:      "reconcile",
		Usage:     "check that open lots reconcile with the net position",
		Action:    reconcileAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "configured",
				Usage: "only check the scopes listed in SCOPES",
			},
		},
		Description: `Print one JSON report per scope; exits non-zero when any scope is unbalanced`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve positions, decisions, allocation previews and metrics`,
	}
)

func executorAction(_ *cli.Context) error {

	logrus.Info("Starting executor CMD")

	executorStrategy := &executor.Executor{}
	err := executorStrategy.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func reconcileAction(c *cli.Context) error {

	logrus.Info("Starting reconcile CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	var only []model.Scope
	if c.Bool("configured") {
		specs, err := executors.ParseScopes(executors.GetConfig().Scopes)
		if err != nil {
			return err
		}
		for _, spec := range specs {
			only = append(only, spec.Scope)
		}
	}

	r := &reconcile.Reconcile{
		Ledger: repository.NewTradeRepository(),
		Out:    os.Stdout,
		Log:    logrus.WithField("cmd", "reconcile"),
	}
	return r.Start(context.Background(), only)
}

func serveAction(_ *cli.Context) error {

	logrus.Info("Starting serve CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.StartServer(ctx, server.GetConfig(), server.NewRouter(server.DefaultRoutes()))
}
