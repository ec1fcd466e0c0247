// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/api/utils"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/builtin/feepool/epoch"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/thor"
)

type Pool struct {
	host *host.Host
}

func New(h *host.Host) *Pool {
	return &Pool{host: h}
}

func (p *Pool) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	var summary *Summary
	err := p.host.View(func(pool *feepool.FeePool, block uint32) (err error) {
		summary, err = buildSummary(pool, block)
		return err
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, summary)
}

func buildSummary(pool *feepool.FeePool, block uint32) (*Summary, error) {
	s := &Summary{Block: block}
	var err error
	if s.Admin, err = pool.Admin(); err != nil {
		return nil, err
	}
	cfg, err := pool.EpochConfig()
	if err != nil {
		return nil, err
	}
	s.Initialized = cfg.Initialized
	s.Genesis = cfg.Genesis
	if s.EpochDuration, err = pool.EpochDuration(); err != nil {
		return nil, err
	}
	if cfg.Initialized && block >= cfg.Genesis {
		if s.CurrentEpoch, err = pool.EpochID(block); err != nil {
			return nil, err
		}
	}
	minimum, err := pool.MinContribution()
	if err != nil {
		return nil, err
	}
	s.MinContribution = amount(minimum)

	staked, err := pool.TotalStaked()
	if err != nil {
		return nil, err
	}
	s.TotalStaked = amount(staked)
	if s.Participants, err = pool.Participants(); err != nil {
		return nil, err
	}
	fees, err := pool.PoolFees()
	if err != nil {
		return nil, err
	}
	s.PoolFees = amount(fees)
	pending, err := pool.PendingFees()
	if err != nil {
		return nil, err
	}
	s.PendingFees = amount(pending)
	return s, nil
}

func (p *Pool) handleGetEpoch(w http.ResponseWriter, req *http.Request) error {
	id, err := parseUint32(mux.Vars(req)["epoch"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "epoch"))
	}
	var res *Epoch
	err = p.host.View(func(pool *feepool.FeePool, _ uint32) error {
		cfg, err := pool.EpochConfig()
		if err != nil {
			return err
		}
		if !cfg.Initialized {
			return reverts.ErrNotInitialized
		}
		clock := epoch.Clock{Genesis: cfg.Genesis, Duration: cfg.Duration}
		res = &Epoch{ID: id}
		if res.StartBlock, err = clock.StartBlock(id); err != nil {
			return err
		}
		if res.EndBlock, err = clock.EndBlock(id); err != nil {
			return err
		}
		bucket, err := pool.RewardBucket(id)
		if err != nil {
			return err
		}
		total, err := pool.TotalWeightAt(id)
		if err != nil {
			return err
		}
		res.Bucket, res.TotalWeight = amount(bucket), amount(total)
		return nil
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, res)
}

func (p *Pool) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var res *Staker
	err = p.host.View(func(pool *feepool.FeePool, block uint32) error {
		info, err := pool.StakeInfo(addr)
		if err != nil {
			return err
		}
		var claimable *big.Int
		initialized, err := pool.IsInitialized()
		if err != nil {
			return err
		}
		if initialized {
			preview, err := pool.Claimable(addr, block)
			if err != nil {
				return err
			}
			claimable = preview.Amount
		}
		res = convertStaker(addr, info, claimable)
		return nil
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, res)
}

func (p *Pool) handleGetWeight(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	id, err := parseUint32(mux.Vars(req)["epoch"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "epoch"))
	}
	var res *Weight
	err = p.host.View(func(pool *feepool.FeePool, _ uint32) error {
		weight, err := pool.WeightAt(addr, id)
		if err != nil {
			return err
		}
		total, err := pool.TotalWeightAt(id)
		if err != nil {
			return err
		}
		res = &Weight{Epoch: id, Weight: amount(weight), Total: amount(total)}
		return nil
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, res)
}

func (p *Pool) handleGetFairShare(w http.ResponseWriter, req *http.Request) error {
	var res *FairShare
	err := p.host.View(func(pool *feepool.FeePool, block uint32) error {
		state, err := pool.FairShare()
		if err != nil {
			return err
		}
		res = convertFairShare(state)
		// project the accumulator unless a block is asked for explicitly
		at := block
		if s := req.URL.Query().Get("block"); s != "" {
			if at, err = parseUint32(s); err != nil {
				return utils.BadRequest(errors.WithMessage(err, "block"))
			}
		}
		z, err := pool.HistoricalZAt(at)
		if err != nil {
			return err
		}
		res.HistoricalZ = amount(z)
		return nil
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, res)
}

func (p *Pool) handleGetChannel(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var weight *big.Int
	err = p.host.View(func(pool *feepool.FeePool, _ uint32) (err error) {
		weight, err = pool.ChannelWeight(addr)
		return err
	})
	if err != nil {
		return utils.Revert(err)
	}
	if weight.Sign() == 0 {
		return utils.NotFound(errors.New("channel not registered"))
	}
	return utils.WriteJSON(w, &Channel{Address: addr, Weight: amount(weight)})
}

func (p *Pool) handleGetClock(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &Clock{Block: p.host.Block()})
}

func (p *Pool) handleAdvanceClock(w http.ResponseWriter, req *http.Request) error {
	var body AdvanceClock
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var (
		block uint32
		err   error
	)
	if body.To != nil {
		block, err = p.host.SetBlock(*body.To)
	} else {
		block, err = p.host.Tick(body.Blocks)
	}
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, &Clock{Block: block})
}

func (p *Pool) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := parseAmountRequest(req, &body, &body.Amount); err != nil {
		return err
	}
	return p.update(w, req, activitydb.OpStake, body.Participant, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		v := (*big.Int)(body.Amount)
		return v, nil, pool.Stake(body.Participant, v, block)
	})
}

func (p *Pool) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := parseAmountRequest(req, &body, &body.Amount); err != nil {
		return err
	}
	return p.update(w, req, activitydb.OpUnstake, body.Participant, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		v := (*big.Int)(body.Amount)
		reward, err := pool.Unstake(body.Participant, v, block)
		return v, reward, err
	})
}

func (p *Pool) handleClaim(w http.ResponseWriter, req *http.Request) error {
	var body ClaimRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return p.update(w, req, activitydb.OpClaim, body.Participant, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		var (
			reward *big.Int
			err    error
		)
		if body.ToEpoch != nil {
			reward, err = pool.ClaimUntil(body.Participant, *body.ToEpoch, block)
		} else {
			reward, err = pool.Claim(body.Participant, block)
		}
		return nil, reward, err
	})
}

func (p *Pool) handleAddFees(w http.ResponseWriter, req *http.Request) error {
	var body FeesRequest
	if err := parseAmountRequest(req, &body, &body.Amount); err != nil {
		return err
	}
	return p.update(w, req, activitydb.OpAddFees, body.Caller, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		v := (*big.Int)(body.Amount)
		return v, nil, pool.AddPoolFees(body.Caller, v, block)
	})
}

func (p *Pool) handleInitialize(w http.ResponseWriter, req *http.Request) error {
	var body InitializeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return p.update(w, req, activitydb.OpInitialize, body.Caller, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		genesis := block
		if body.Genesis != nil {
			genesis = *body.Genesis
		}
		return nil, nil, pool.InitializeStake(body.Caller, genesis, block)
	})
}

func (p *Pool) handleHarvest(w http.ResponseWriter, req *http.Request) error {
	var body HarvestRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return p.update(w, req, activitydb.OpDAOHarvest, feepool.PoolAddress, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		reward, err := pool.DAOHarvest(body.Caller, block)
		return nil, reward, err
	})
}

func (p *Pool) handleAddChannel(w http.ResponseWriter, req *http.Request) error {
	var body ChannelRequest
	if err := parseAmountRequest(req, &body, &body.Contribution); err != nil {
		return err
	}
	return p.update(w, req, activitydb.OpAddChannel, body.Channel, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		v := (*big.Int)(body.Contribution)
		_, err := pool.AddChannel(body.Channel, v, block)
		return v, nil, err
	})
}

func (p *Pool) handleUpdateChannel(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var body ChannelRequest
	if err := parseAmountRequest(req, &body, &body.Contribution); err != nil {
		return err
	}
	if !body.Channel.IsZero() && body.Channel != addr {
		return utils.BadRequest(errors.New("channel: mismatches path"))
	}
	return p.update(w, req, activitydb.OpUpdateChannel, addr, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		v := (*big.Int)(body.Contribution)
		_, err := pool.UpdateChannel(addr, v, block)
		return v, nil, err
	})
}

func (p *Pool) handleRemoveChannel(w http.ResponseWriter, req *http.Request) error {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	return p.update(w, req, activitydb.OpRemoveChannel, addr, func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
		_, err := pool.RemoveChannel(addr, block)
		return nil, nil, err
	})
}

// handleConfig applies admin settings. They are not journaled.
func (p *Pool) handleConfig(w http.ResponseWriter, req *http.Request) error {
	var body ConfigRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var summary *Summary
	err := p.host.Configure(func(pool *feepool.FeePool, block uint32) (err error) {
		if body.EpochDuration != nil {
			if err := pool.SetEpochDuration(body.Caller, *body.EpochDuration); err != nil {
				return err
			}
		}
		if body.MinContribution != nil {
			if err := pool.SetMinContribution(body.Caller, (*big.Int)(body.MinContribution)); err != nil {
				return err
			}
		}
		// last, the caller may lose the admin role
		if body.Admin != nil {
			if err := pool.SetAdmin(body.Caller, *body.Admin); err != nil {
				return err
			}
		}
		summary, err = buildSummary(pool, block)
		return err
	})
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, summary)
}

func (p *Pool) update(w http.ResponseWriter, req *http.Request, op activitydb.Op, participant thor.Address, fn host.UpdateFunc) error {
	receipt, err := p.host.Update(req.Context(), op, participant, fn)
	if err != nil {
		return utils.Revert(err)
	}
	return utils.WriteJSON(w, convertReceipt(receipt))
}

// parseAmountRequest decodes body and requires the amount field it points into.
func parseAmountRequest(req *http.Request, body any, amount **math.HexOrDecimal256) error {
	if err := utils.ParseJSON(req.Body, body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if *amount == nil {
		return utils.BadRequest(errors.New("amount: required"))
	}
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (p *Pool) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pool").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetSummary))
	sub.Path("/epochs/{epoch}").
		Methods(http.MethodGet).
		Name("GET /pool/epochs/{epoch}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetEpoch))
	sub.Path("/stakers/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/stakers/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetStaker))
	sub.Path("/stakers/{address}/weights/{epoch}").
		Methods(http.MethodGet).
		Name("GET /pool/stakers/{address}/weights/{epoch}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetWeight))
	sub.Path("/fairshare").
		Methods(http.MethodGet).
		Name("GET /pool/fairshare").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetFairShare))
	sub.Path("/channels/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/channels/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetChannel))
	sub.Path("/clock").
		Methods(http.MethodGet).
		Name("GET /pool/clock").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetClock))

	sub.Path("/clock").
		Methods(http.MethodPost).
		Name("POST /pool/clock").
		HandlerFunc(utils.WrapHandlerFunc(p.handleAdvanceClock))
	sub.Path("/stake").
		Methods(http.MethodPost).
		Name("POST /pool/stake").
		HandlerFunc(utils.WrapHandlerFunc(p.handleStake))
	sub.Path("/unstake").
		Methods(http.MethodPost).
		Name("POST /pool/unstake").
		HandlerFunc(utils.WrapHandlerFunc(p.handleUnstake))
	sub.Path("/claim").
		Methods(http.MethodPost).
		Name("POST /pool/claim").
		HandlerFunc(utils.WrapHandlerFunc(p.handleClaim))
	sub.Path("/fees").
		Methods(http.MethodPost).
		Name("POST /pool/fees").
		HandlerFunc(utils.WrapHandlerFunc(p.handleAddFees))
	sub.Path("/initialize").
		Methods(http.MethodPost).
		Name("POST /pool/initialize").
		HandlerFunc(utils.WrapHandlerFunc(p.handleInitialize))
	sub.Path("/harvest").
		Methods(http.MethodPost).
		Name("POST /pool/harvest").
		HandlerFunc(utils.WrapHandlerFunc(p.handleHarvest))
	sub.Path("/channels").
		Methods(http.MethodPost).
		Name("POST /pool/channels").
		HandlerFunc(utils.WrapHandlerFunc(p.handleAddChannel))
	sub.Path("/channels/{address}").
		Methods(http.MethodPut).
		Name("PUT /pool/channels/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleUpdateChannel))
	sub.Path("/channels/{address}").
		Methods(http.MethodDelete).
		Name("DELETE /pool/channels/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleRemoveChannel))
	sub.Path("/config").
		Methods(http.MethodPut).
		Name("PUT /pool/config").
		HandlerFunc(utils.WrapHandlerFunc(p.handleConfig))
}
