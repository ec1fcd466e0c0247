// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/api/utils/fpath"
	"github.com/vechain/feepool/api/utils/rotatewriter"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/builtin/feepool/ledger"
	"github.com/vechain/feepool/co"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/log"
	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/metrics"
	"github.com/vechain/feepool/thor"
)

func fatal(args ...any) {
	var w io.Writer
	outf, _ := os.Stdout.Stat()
	errf, _ := os.Stderr.Stat()
	if outf != nil && errf != nil && os.SameFile(outf, errf) {
		w = os.Stderr
	} else {
		w = io.MultiWriter(os.Stdout, os.Stderr)
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func readIntFromUInt64Flag(val uint64) (int, error) {
	if val > math.MaxInt {
		return 0, fmt.Errorf("value %d exceeds max int", val)
	}
	return int(val), nil
}

// initLogger installs the root logger and returns its adjustable level.
func initLogger(lvl int, jsonLogs bool) *slog.LevelVar {
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(lvl))

	var handler slog.Handler
	if jsonLogs {
		handler = log.JSONHandlerWithLevel(os.Stderr, &level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.TerminalHandlerWithLevel(os.Stderr, &level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return &level
}

func makeDataDir(ctx *cli.Context) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", dataDir)
	}
	if size, err := fpath.SizeOfDir(dataDir); err == nil {
		logger.Debug("data dir", "path", dataDir, "size", common.StorageSize(size))
	}
	return dataDir, nil
}

func openMainDB(ctx *cli.Context, dataDir string) (*lvldb.LevelDB, error) {
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	logger.Debug("cache size(MB)", "size", cacheMB)

	// ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	logger.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache := suggestFDCache()
	logger.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		logger.Warn("failed to get fd limit", "err", err)
		return 500
	}
	if limit <= 1024 {
		logger.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

func openActivityDB(ctx *cli.Context, dataDir string) (*activitydb.ActivityDB, error) {
	if ctx.Bool(disableActivitiesFlag.Name) {
		return nil, nil
	}
	if dataDir == "" {
		return activitydb.NewMem()
	}
	dir := filepath.Join(dataDir, "activities.db")
	db, err := activitydb.New(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open activity database [%v]", dir)
	}
	return db, nil
}

func parseAddress(s string) (thor.Address, error) {
	if s == "" {
		return thor.Address{}, nil
	}
	return thor.ParseAddress(s)
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := ethmath.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func poolOptions(ctx *cli.Context) (host.Options, error) {
	admin, err := parseAddress(ctx.String(adminFlag.Name))
	if err != nil {
		return host.Options{}, errors.Wrap(err, "-"+adminFlag.Name)
	}
	policy, ok := ledger.PolicyByName(ctx.String(policyFlag.Name))
	if !ok {
		return host.Options{}, fmt.Errorf("-%s: unknown policy %q", policyFlag.Name, ctx.String(policyFlag.Name))
	}
	seed, err := parseAmount(ctx.String(seedStakeFlag.Name))
	if err != nil {
		return host.Options{}, errors.Wrap(err, "-"+seedStakeFlag.Name)
	}
	startBlock := ctx.Uint64(startBlockFlag.Name)
	if startBlock > math.MaxUint32 {
		return host.Options{}, fmt.Errorf("-%s: exceeds uint32", startBlockFlag.Name)
	}
	return host.Options{
		Pool: feepool.Options{
			Admin:     admin,
			Policy:    policy,
			SeedStake: seed,
		},
		StartBlock: uint32(startBlock),
	}, nil
}

// apiRequestLogger returns the logger for API request logs, rotated into
// files when a directory is configured.
func apiRequestLogger(ctx *cli.Context) (log.Logger, func(), error) {
	dir := ctx.String(apiLogsDirFlag.Name)
	if dir == "" {
		return nil, func() {}, nil
	}
	maxFiles, err := readIntFromUInt64Flag(ctx.Uint64(apiLogsMaxFilesFlag.Name))
	if err != nil {
		return nil, nil, errors.Wrap(err, "-"+apiLogsMaxFilesFlag.Name)
	}
	w, err := rotatewriter.New(
		rotatewriter.WithDir(dir),
		rotatewriter.WithFileBaseName("api"),
		rotatewriter.WithFileMaxSize(int64(ctx.Uint64(apiLogsMaxSizeFlag.Name))*1024*1024),
		rotatewriter.WithMaxNumberFiles(maxFiles),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := w.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "start api log writer")
	}
	logger.Info("API logs rotated", "file", w.Name())
	return log.NewLogger(log.JSONHandler(w)), func() { w.Close() }, nil
}

func serve(addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String(), func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func startAPIServer(ctx *cli.Context, handler http.Handler) (string, func(), error) {
	addr := ctx.String(apiAddrFlag.Name)
	if timeout := ctx.Uint64(apiTimeoutFlag.Name); timeout > 0 {
		handler = http.TimeoutHandler(handler, time.Duration(timeout)*time.Millisecond, "request timeout")
	}
	url, stop, err := serve(addr, handler)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	return url + "/", stop, nil
}

func startMetricsServer(addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	url, stop, err := serve(addr, handlers.CompressHandler(router))
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}
	return url + "/metrics", stop, nil
}

func printStartupMessage(h *host.Host, dataDir, apiURL string, blockInterval time.Duration) error {
	return h.View(func(pool *feepool.FeePool, block uint32) error {
		admin, err := pool.Admin()
		if err != nil {
			return err
		}
		duration, err := pool.EpochDuration()
		if err != nil {
			return err
		}
		initialized, err := pool.IsInitialized()
		if err != nil {
			return err
		}
		fmt.Printf(`Starting %v
    Pool        [ %v ]
    Admin       [ %v ]
    Block       [ #%v every %v ]
    Epoch       [ %v blocks, initialized %v ]
    Data dir    [ %v ]
    API portal  [ %v ]
`,
			common.MakeName("FeePool", fullVersion()),
			feepool.PoolAddress,
			admin,
			block, blockInterval,
			duration, initialized,
			dataDir,
			apiURL)
		return nil
	})
}
