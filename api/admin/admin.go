// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/feepool/api/admin/apilogs"
	"github.com/vechain/feepool/api/admin/health"
	"github.com/vechain/feepool/api/admin/loglevel"
)

// New returns the admin router. The health endpoint follows src until ctx is done.
func New(ctx context.Context, logLevel *slog.LevelVar, apiLogs *atomic.Bool, src health.BlockSource, blockInterval time.Duration) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	apilogs.New(apiLogs).Mount(sub, "/apilogs")
	health.New(ctx, src, blockInterval).Mount(sub, "/health")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
