// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/feepool/log"
)

// mockLogger records the context of Info and Warn calls.
type mockLogger struct {
	infos [][]any
	warns [][]any
}

func (m *mockLogger) With(_ ...any) log.Logger                     { return m }
func (m *mockLogger) New(_ ...any) log.Logger                      { return m }
func (m *mockLogger) Log(_ slog.Level, _ string, _ ...any)         {}
func (m *mockLogger) Write(_ slog.Level, _ string, _ ...any)       {}
func (m *mockLogger) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (m *mockLogger) Handler() slog.Handler                        { return nil }
func (m *mockLogger) Trace(_ string, _ ...any)                     {}
func (m *mockLogger) Debug(_ string, _ ...any)                     {}
func (m *mockLogger) Error(_ string, _ ...any)                     {}
func (m *mockLogger) Crit(_ string, _ ...any)                      {}
func (m *mockLogger) Info(_ string, ctx ...any)                    { m.infos = append(m.infos, ctx) }
func (m *mockLogger) Warn(_ string, ctx ...any)                    { m.warns = append(m.warns, ctx) }

func TestRequestLoggerMiddleware(t *testing.T) {
	ok := func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("OK")) }
	slow := func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("OK"))
	}
	fail := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		enabled   bool
		threshold time.Duration
		log5xx    bool
		infos     int
		warns     int
	}{
		{"enabled", ok, true, 0, false, 1, 0},
		{"disabled", ok, false, 0, false, 0, 0},
		{"fast under threshold", ok, false, time.Second, false, 0, 0},
		{"slow over threshold", slow, false, time.Millisecond, false, 1, 0},
		{"server error logged", fail, false, 0, true, 0, 1},
		{"server error ignored", fail, false, 0, false, 0, 0},
		{"success with 5xx logging", ok, false, 0, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			var enabled atomic.Bool
			enabled.Store(tt.enabled)

			handler := RequestLoggerMiddleware(logger, &enabled, tt.threshold, tt.log5xx)(tt.handler)
			req := httptest.NewRequest(http.MethodPost, "/pool/stake", strings.NewReader(`{"amount":"1"}`))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Len(t, logger.infos, tt.infos)
			assert.Len(t, logger.warns, tt.warns)
			for _, ctx := range append(logger.infos, logger.warns...) {
				assert.Contains(t, ctx, "/pool/stake")
				assert.Contains(t, ctx, `{"amount":"1"}`)
				assert.Contains(t, ctx, rec.Code)
			}
		})
	}
}

func TestRequestLoggerKeepsBody(t *testing.T) {
	var enabled atomic.Bool
	enabled.Store(true)

	var seen string
	handler := RequestLoggerMiddleware(&mockLogger{}, &enabled, 0, false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		seen = buf.String()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("body")))
	assert.Equal(t, "body", seen)
}
