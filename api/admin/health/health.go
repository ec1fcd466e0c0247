// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"sync"
	"time"
)

// BlockSource is the block clock being watched.
type BlockSource interface {
	Block() uint32
	NewBlock() <-chan struct{}
}

type BlockIngestion struct {
	Number    uint32     `json:"number"`
	Timestamp *time.Time `json:"timestamp"`
}

type Status struct {
	Healthy        bool            `json:"healthy"`
	BlockIngestion *BlockIngestion `json:"blockIngestion"`
}

type health struct {
	lock          sync.RWMutex
	newBlockAt    time.Time
	block         uint32
	blockInterval time.Duration
	src           BlockSource
}

func newHealth(src BlockSource, blockInterval time.Duration) *health {
	return &health{
		newBlockAt:    time.Now(),
		block:         src.Block(),
		blockInterval: blockInterval,
		src:           src,
	}
}

const delayBuffer = 5 * time.Second

func (h *health) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.src.NewBlock():
			h.newBlock(h.src.Block())
		}
	}
}

func (h *health) newBlock(n uint32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newBlockAt = time.Now()
	h.block = n
}

func (h *health) status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	at := h.newBlockAt
	return &Status{
		Healthy: time.Since(at) <= h.blockInterval+delayBuffer,
		BlockIngestion: &BlockIngestion{
			Number:    h.block,
			Timestamp: &at,
		},
	}
}
