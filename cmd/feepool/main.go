// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/feepool/api"
	"github.com/vechain/feepool/api/utils/fpath"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/log"
	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/metrics"
	"github.com/vechain/feepool/thor"
)

var (
	version       string
	gitCommit     string
	gitTag        string
	copyrightYear = "2025"

	logger = log.WithContext("pkg", "feepool-cmd")

	metricDataDirSize = metrics.LazyLoadGauge("data_dir_bytes")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func newApp() *cli.App {
	return &cli.App{
		Version:   fullVersion(),
		Name:      "FeePool",
		Usage:     "Staking fee pool over a simulated block clock",
		Copyright: fmt.Sprintf("2025-%s VeChain Foundation <https://vechain.org/>", copyrightYear),
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			persistFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiActivitiesLimitFlag,
			apiSlowQueriesThresholdFlag,
			apiLog5xxErrorsFlag,
			enableAPILogsFlag,
			apiLogsDirFlag,
			apiLogsMaxSizeFlag,
			apiLogsMaxFilesFlag,
			disableActivitiesFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			adminFlag,
			policyFlag,
			seedStakeFlag,
			startBlockFlag,
			blockIntervalFlag,
			disableNTPFlag,
		},
		Action: soloAction,
		Commands: []cli.Command{
			{
				Name:      "replay",
				Usage:     "replay a YAML scenario on an in-memory pool and print the outcome",
				ArgsUsage: "<scenario.yaml>",
				Flags: []cli.Flag{
					verbosityFlag,
					jsonLogsFlag,
					showProgressFlag,
					expectFlag,
				},
				Action: replayAction,
			},
			{
				Name:  "dump",
				Usage: "print the persisted pool storage slots",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
				},
				Action: dumpAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func soloAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	if err := loadConfigFile(ctx); err != nil {
		return err
	}
	lvl, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse verbosity flag")
	}
	logLevel := initLogger(lvl, ctx.Bool(jsonLogsFlag.Name))

	metricsEnabled := ctx.Bool(enableMetricsFlag.Name)
	if metricsEnabled {
		metrics.InitializePrometheusMetrics()
	}

	opts, err := poolOptions(ctx)
	if err != nil {
		return err
	}

	var (
		mainDB  *lvldb.LevelDB
		dataDir string
	)
	if ctx.Bool(persistFlag.Name) {
		if dataDir, err = makeDataDir(ctx); err != nil {
			return err
		}
		mainDB, err = openMainDB(ctx, dataDir)
	} else {
		mainDB, err = lvldb.NewMem()
	}
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	activities, err := openActivityDB(ctx, dataDir)
	if err != nil {
		return err
	}
	if activities != nil {
		defer func() { logger.Info("closing activity database..."); activities.Close() }()
		logger.Debug("activity journal", "path", activities.Path(), "sqlite", activities.DriverVersion())
	}

	h, err := host.New(mainDB, activities, opts)
	if err != nil {
		return err
	}

	requestLogger, closeRequestLogger, err := apiRequestLogger(ctx)
	if err != nil {
		return err
	}
	defer closeRequestLogger()

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	handler := api.New(h, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableMetrics:        metricsEnabled,
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
		ActivitiesLimit:      ctx.Uint64(apiActivitiesLimitFlag.Name),
		RequestLogger:        requestLogger,
	})
	apiURL, stopAPI, err := startAPIServer(ctx, handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); stopAPI() }()

	blockInterval := ctx.Duration(blockIntervalFlag.Name)

	if ctx.Bool(enableAdminFlag.Name) {
		url, stop, err := api.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs, h, blockInterval)
		if err != nil {
			return errors.Wrap(err, "start admin server")
		}
		defer func() { logger.Info("stopping admin server..."); stop() }()
		logger.Info("admin server started", "url", url)
	}

	if metricsEnabled {
		url, stop, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
		defer func() { logger.Info("stopping metrics server..."); stop() }()
		logger.Info("metrics server started", "url", url)
	}

	dirLabel := dataDir
	if dirLabel == "" {
		dirLabel = "Memory"
	}
	if err := printStartupMessage(h, dirLabel, apiURL, blockInterval); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(handleExitSignal())
	group.Go(func() error {
		return runBlockClock(groupCtx, h, blockInterval)
	})
	if blockInterval > 0 && !ctx.Bool(disableNTPFlag.Name) {
		group.Go(func() error {
			houseKeeping(groupCtx, blockInterval)
			return nil
		})
	}
	if metricsEnabled && dataDir != "" {
		group.Go(func() error {
			pollDataDirSize(groupCtx, dataDir)
			return nil
		})
	}
	return group.Wait()
}

func dumpAction(ctx *cli.Context) error {
	lvl, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse verbosity flag")
	}
	initLogger(lvl, false)

	dataDir := ctx.String(dataDirFlag.Name)
	if exists, err := fpath.PathExists(dataDir); err != nil || !exists {
		return fmt.Errorf("no pool data at [%v]", dataDir)
	}
	mainDB, err := openMainDB(ctx, dataDir)
	if err != nil {
		return err
	}
	defer mainDB.Close()

	h, err := host.New(mainDB, nil, host.Options{})
	if err != nil {
		return err
	}
	fmt.Printf("block %d\n", h.Block())
	return h.Dump(func(slot thor.Bytes32, raw []byte) bool {
		fmt.Printf("%v %x\n", slot, raw)
		return true
	})
}

func pollDataDirSize(ctx context.Context, dataDir string) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		if size, err := fpath.SizeOfDir(dataDir); err == nil {
			metricDataDirSize().Set(size)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
