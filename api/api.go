// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/feepool/api/activities"
	"github.com/vechain/feepool/api/doc"
	"github.com/vechain/feepool/api/middleware"
	"github.com/vechain/feepool/api/pool"
	"github.com/vechain/feepool/api/subscriptions"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	PprofOn              bool
	EnableMetrics        bool
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
	ActivitiesLimit      uint64
	// RequestLogger receives request logs, the package logger when nil.
	RequestLogger log.Logger
}

// New return api router
func New(h *host.Host, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	// serve the OpenAPI document
	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/feepool.yaml", http.StatusTemporaryRedirect)
		})

	pool.New(h).
		Mount(router, "/pool")
	if adb := h.Activities(); adb != nil {
		activities.New(adb, opts.ActivitiesLimit).
			Mount(router, "/activities")
	}

	subscriptions.New(h, origins).
		Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	enabled := opts.EnableReqLogger
	if enabled == nil {
		enabled = &atomic.Bool{}
	}
	reqLogger := opts.RequestLogger
	if reqLogger == nil {
		reqLogger = logger
	}
	router.Use(middleware.RequestLoggerMiddleware(reqLogger, enabled, opts.SlowQueriesThreshold, opts.Log5xxErrors))

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.ExposedHeaders([]string{"x-feepool-ver"}),
	)(handler)

	return versionHandler(handler).ServeHTTP
}

func versionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-feepool-ver", doc.Version())
		next.ServeHTTP(w, r)
	})
}
