// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRevert(t *testing.T) {
	err := Newf(KindInsufficientStake, "have %d, want %d", 1, 2)
	assert.Equal(t, "insufficient stake: have 1, want 2", err.Error())
	assert.ErrorIs(t, err, ErrInsufficientStake)
	assert.NotErrorIs(t, err, ErrOverflow)
	assert.Equal(t, KindInsufficientStake, err.Kind())

	wrapped := pkgerrors.WithMessage(err, "unstake")
	assert.ErrorIs(t, wrapped, ErrInsufficientStake)
	assert.True(t, IsRevertErr(wrapped))
	assert.Equal(t, KindInsufficientStake, KindOf(wrapped))

	assert.Equal(t, "overflow", ErrOverflow.Error())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestIsRevertErr(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr("string"))
	assert.False(t, IsRevertErr(errors.New("plain")))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.True(t, IsRevertErr(New(KindNotAuthorized, "")))
}
