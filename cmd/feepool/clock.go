// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"
)

type ticker interface {
	Tick(n uint32) (uint32, error)
}

// runBlockClock advances the host one block per interval until ctx is done.
func runBlockClock(ctx context.Context, h ticker, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			block, err := h.Tick(1)
			if err != nil {
				return err
			}
			logger.Trace("new block", "number", block)
		}
	}
}

// houseKeeping periodically compares the local clock, which paces blocks,
// with NTP.
func houseKeeping(ctx context.Context, blockInterval time.Duration) {
	logger.Debug("enter house keeping")
	defer logger.Debug("leave house keeping")

	clockSyncTicker := time.NewTicker(10 * time.Minute)
	defer clockSyncTicker.Stop()

	checkClockOffset(blockInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-clockSyncTicker.C:
			checkClockOffset(blockInterval)
		}
	}
}

func checkClockOffset(blockInterval time.Duration) {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	if resp.ClockOffset > blockInterval/2 || -resp.ClockOffset > blockInterval/2 {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}
