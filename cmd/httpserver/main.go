package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/registration-ledger/cmd/flags"
	"github.com/ruteri/registration-ledger/common"
	"github.com/ruteri/registration-ledger/httpserver"
	"github.com/ruteri/registration-ledger/metrics"
	"github.com/ruteri/registration-ledger/registration"
	"github.com/urfave/cli/v2"
)

func main() {
	allFlags := []cli.Flag{flags.ListenAddrFlag, flags.CommitMessageFlag}
	allFlags = append(allFlags, flags.StoreFlags...)
	allFlags = append(allFlags, flags.CommonFlags...)
	allFlags = append(allFlags, flags.LogFlags...)

	app := &cli.App{
		Name:  "registration-server",
		Usage: "Serve the registration ledger API",
		Flags: allFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			store, err := flags.BuildStore(cCtx, logger)
			if err != nil {
				logger.Error("Failed to create document store", "err", err)
				return err
			}
			logger.Info("Using document store", "location", store.LocationURI())

			metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			store = metrics.InstrumentStore(store, metricsSrv.Metrics)
			registrar := registration.NewRegistrar(store, flags.ConfigureRegistrar(cCtx), logger)
			handler := httpserver.NewHandler(registrar, metricsSrv.Metrics, logger)

			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, store, metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
