// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/api/utils"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/log"
	"github.com/vechain/feepool/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10
)

var (
	logger = log.WithContext("pkg", "subscriptions")

	metricActiveWebsockets = metrics.LazyLoadGauge("api_active_websocket_count")
)

// ClockMessage is pushed for every new block.
type ClockMessage struct {
	Block uint32 `json:"block"`
	// Epoch is zero until the pool is initialized.
	Epoch uint32 `json:"epoch"`
}

type Subscriptions struct {
	host     *host.Host
	upgrader *websocket.Upgrader
}

func New(h *host.Host, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		host: h,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, u.Host) || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

func (s *Subscriptions) clockMessage() (*ClockMessage, error) {
	var msg ClockMessage
	err := s.host.View(func(pool *feepool.FeePool, block uint32) error {
		msg.Block = block
		epoch, err := pool.EpochID(block)
		if err != nil && !errors.Is(err, reverts.ErrNotInitialized) {
			return err
		}
		msg.Epoch = epoch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Subscriptions) handleClock(w http.ResponseWriter, req *http.Request) error {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has replied to the client
		logger.Debug("upgrade to websocket", "err", err)
		return nil
	}
	defer conn.Close()

	metricActiveWebsockets().Add(1)
	defer metricActiveWebsockets().Add(-1)

	if err := s.pipe(conn); err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		logger.Debug("clock subscription closed", "err", err)
	}
	return nil
}

// pipe writes the current clock and then every new block until the peer
// leaves.
func (s *Subscriptions) pipe(conn *websocket.Conn) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var last uint32
	sent := false
	for {
		// subscribe before reading so no block is missed
		newBlock := s.host.NewBlock()
		msg, err := s.clockMessage()
		if err != nil {
			return err
		}
		if !sent || msg.Block != last {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
			last, sent = msg.Block, true
		}

		select {
		case <-newBlock:
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/clock").
		Methods(http.MethodGet).
		Name("WS /subscriptions/clock").
		HandlerFunc(utils.WrapHandlerFunc(s.handleClock))
}
