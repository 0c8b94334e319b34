package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ruteri/validator-provisioning/chain"
	"github.com/ruteri/validator-provisioning/cmd/flags"
	"github.com/ruteri/validator-provisioning/common"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/httpserver"
	"github.com/ruteri/validator-provisioning/metrics"
	"github.com/ruteri/validator-provisioning/monitor"
	"github.com/urfave/cli/v2"
)

var monitorFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Value: config.DefaultPath,
		Usage: "node configuration file",
	},
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: httpserver.DefaultListenAddr,
		Usage: "address to listen on for the monitor API",
	},
	&cli.StringFlag{
		Name:  "node-rpc",
		Value: "http://127.0.0.1:8080",
		Usage: "JSON-RPC endpoint of the local node",
	},
	&cli.StringFlag{
		Name:  "upstream-rpc",
		Usage: "JSON-RPC endpoint of a trusted upstream node, used as the sync reference",
	},
	&cli.Int64Flag{
		Name:  "refresh-seconds",
		Value: int64(monitor.DefaultRefreshInterval / time.Second),
		Usage: "seconds between health check refreshes",
	},
	&cli.Uint64Flag{
		Name:  "sync-tolerance",
		Value: monitor.DefaultSyncTolerance,
		Usage: "versions the node may trail the reference and still count as synced",
	},
	&cli.StringFlag{
		Name:  "manifest",
		Value: "/root/.0L/account.json",
		Usage: "account manifest served at /account.json",
	},
	&cli.StringFlag{
		Name:  "static-dir",
		Usage: "directory of static assets served at /",
	},
}

func main() {
	app := &cli.App{
		Name:  "monitor",
		Usage: "Serve node health checks",
		Flags: slices.Concat(monitorFlags, flags.ServerFlags, flags.LogFlags, []cli.Flag{flags.LogServiceFlagFn("monitor")}),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load(cCtx.String("config"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			node, err := chain.Dial(ctx, cCtx.String("node-rpc"), logger)
			if err != nil {
				return err
			}
			defer node.Close()

			checker := &monitor.NodeChecker{
				Config:        cfg,
				Node:          node,
				SyncTolerance: cCtx.Uint64("sync-tolerance"),
				Log:           logger,
			}
			if upstreamURL := cCtx.String("upstream-rpc"); upstreamURL != "" {
				upstream, err := chain.Dial(ctx, upstreamURL, logger)
				if err != nil {
					return err
				}
				defer upstream.Close()
				checker.Upstream = upstream
			}

			serverCfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))

			var metricsSrv *metrics.MetricsServer
			if serverCfg.MetricsAddr != "" {
				metricsSrv, err = metrics.New(common.PackageName, serverCfg.MetricsAddr)
				if err != nil {
					return err
				}
			}

			cache := monitor.NewCache()
			handlerCfg := httpserver.HandlerConfig{
				ManifestPath: cCtx.String("manifest"),
				StaticDir:    cCtx.String("static-dir"),
				Intervals:    httpserver.DefaultIntervals,
			}
			var recorder monitor.RefreshRecorder
			if metricsSrv != nil {
				handlerCfg.Recorder = metricsSrv
				recorder = metricsSrv
			}

			refresher := monitor.NewRefresher(cache, checker, time.Duration(cCtx.Int64("refresh-seconds"))*time.Second, recorder, logger)
			go func() {
				if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Refresher stopped", "err", err)
				}
			}()

			server, err := httpserver.New(serverCfg, httpserver.NewHandler(cache, handlerCfg, logger), metricsSrv)
			if err != nil {
				return err
			}

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			server.RunInBackground()

			<-exit

			cancel()
			server.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
