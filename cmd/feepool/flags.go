// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/feepool/api/utils/fpath"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML file with flag values, explicit flags take precedence",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: fpath.DefaultDataDir(),
		Usage: "directory for the pool databases",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "save pool state to disk instead of memory",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "megabytes of ram allocated to the state cache",
		Value: 256,
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	apiActivitiesLimitFlag = cli.Uint64Flag{
		Name:  "api-activities-limit",
		Value: 1000,
		Usage: "limit the number of activities returned by /activities API",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "all queries with duration longer than this threshold (ms) are logged, 0 disables it",
	}
	apiLog5xxErrorsFlag = cli.BoolFlag{
		Name:  "api-log-5xx-errors",
		Usage: "log API requests answered with 5xx status codes",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiLogsDirFlag = cli.StringFlag{
		Name:  "api-logs-dir",
		Usage: "write API request logs to rotated files in this directory",
	}
	apiLogsMaxSizeFlag = cli.Uint64Flag{
		Name:  "api-logs-max-size",
		Value: 100,
		Usage: "size in megabytes of one API log file",
	}
	apiLogsMaxFilesFlag = cli.Uint64Flag{
		Name:  "api-logs-max-files",
		Value: 10,
		Usage: "number of API log files kept",
	}
	disableActivitiesFlag = cli.BoolFlag{
		Name:  "disable-activities",
		Usage: "do not journal applied operations",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}

	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}

	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}

	// pool
	adminFlag = cli.StringFlag{
		Name:  "admin",
		Usage: "initial pool administrator address",
	}
	policyFlag = cli.StringFlag{
		Name:  "policy",
		Value: "amount",
		Usage: "stake weight policy (amount|holder)",
	}
	seedStakeFlag = cli.StringFlag{
		Name:  "seed-stake",
		Value: "0",
		Usage: "amount staked by the pool itself at initialization",
	}
	startBlockFlag = cli.Uint64Flag{
		Name:  "start-block",
		Usage: "block number of a fresh pool",
	}
	blockIntervalFlag = cli.DurationFlag{
		Name:  "block-interval",
		Value: 10 * time.Second,
		Usage: "time between simulated blocks, 0 advances blocks only through the API",
	}
	disableNTPFlag = cli.BoolFlag{
		Name:  "disable-ntp",
		Usage: "do not check the local clock against NTP",
	}

	// replay
	showProgressFlag = cli.BoolFlag{
		Name:  "progress",
		Usage: "show a progress bar while replaying",
	}
	expectFlag = cli.StringFlag{
		Name:  "expect",
		Usage: "YAML file with the expected outcome, a difference fails the replay",
	}
)
