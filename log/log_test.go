// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandlerFormatsAmounts(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(JSONHandler(&buf))

	l.Info("claimed", "amount", big.NewInt(200), "scaled", uint256.NewInt(7), "nilAmount", (*big.Int)(nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "claimed", rec["msg"])
	assert.Equal(t, "info", rec["lvl"])
	assert.Equal(t, "200", rec["amount"])
	assert.Equal(t, "7", rec["scaled"])
	assert.Equal(t, "<nil>", rec["nilAmount"])
	assert.Contains(t, rec, "t")
}

func TestLogfmtLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	var lvl slog.LevelVar
	lvl.Set(LevelWarn)
	l := NewLogger(LogfmtHandlerWithLevel(&buf, &lvl))

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown", "k", "v")
	assert.True(t, strings.Contains(buf.String(), "lvl=warn"))
	assert.True(t, strings.Contains(buf.String(), "k=v"))

	buf.Reset()
	l.Info("odd", "k")
	assert.Empty(t, buf.String())
	l.Error("odd", "k")
	assert.Contains(t, buf.String(), errorKey)
}

func TestWithContextFollowsRoot(t *testing.T) {
	defer SetDefault(NewLogger(DiscardHandler()))

	pkgLogger := WithContext("pkg", "feepool")

	var buf bytes.Buffer
	SetDefault(NewLogger(JSONHandler(&buf)))

	pkgLogger.With("epoch", 3).Debug("settled")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "feepool", rec["pkg"])
	assert.Equal(t, float64(3), rec["epoch"])
	assert.Equal(t, "debug", rec["lvl"])
}

func TestLevels(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, LevelInfo, FromLegacyLevel(3))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
	assert.Equal(t, "trace", LevelString(LevelTrace))
	assert.Equal(t, "unknown", LevelString(slog.Level(100)))
}

func TestTerminalHandlerWithLevel(t *testing.T) {
	var buf bytes.Buffer
	var lvl slog.LevelVar
	lvl.Set(LevelInfo)
	l := NewLogger(TerminalHandlerWithLevel(&buf, &lvl, false)).With("pkg", "host")

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	lvl.Set(LevelDebug)
	l.Debug("tick", "block", 7)
	assert.Contains(t, buf.String(), "tick")
	assert.Contains(t, buf.String(), "block=7")
	assert.Contains(t, buf.String(), "pkg=host")
}
