// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/builtin/feepool/ledger"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/thor"
)

// scenario is a scripted sequence of pool operations. Participants are
// 0x addresses or plain names, a name maps to the address of its bytes.
type scenario struct {
	StartBlock      uint32 `yaml:"start-block"`
	EpochDuration   uint32 `yaml:"epoch-duration"`
	MinContribution string `yaml:"min-contribution"`
	Policy          string `yaml:"policy"`
	SeedStake       string `yaml:"seed-stake"`
	Admin           string `yaml:"admin"`
	Steps           []step `yaml:"steps"`
}

type step struct {
	Op      string  `yaml:"op"`
	Who     string  `yaml:"who"`
	Amount  string  `yaml:"amount"`
	Blocks  uint32  `yaml:"blocks"`
	Genesis *uint32 `yaml:"genesis"`
	ToEpoch *uint32 `yaml:"to-epoch"`
}

const opTick = "tick"

type participantOutcome struct {
	Address   string `yaml:"address"`
	Staked    string `yaml:"staked"`
	Claimed   string `yaml:"claimed"`
	Claimable string `yaml:"claimable"`
}

type outcome struct {
	Block        uint32                         `yaml:"block"`
	Epoch        uint32                         `yaml:"epoch"`
	TotalStaked  string                         `yaml:"total-staked"`
	PoolFees     string                         `yaml:"pool-fees"`
	Participants map[string]*participantOutcome `yaml:"participants"`
}

func replayAction(ctx *cli.Context) error {
	lvl, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse verbosity flag")
	}
	initLogger(lvl, ctx.Bool(jsonLogsFlag.Name))

	if ctx.NArg() != 1 {
		return errors.New("expected one scenario file")
	}
	sc, err := loadScenario(ctx.Args().First())
	if err != nil {
		return err
	}
	result, err := replay(context.Background(), sc, ctx.Bool(showProgressFlag.Name))
	if err != nil {
		return err
	}
	if path := ctx.String(expectFlag.Name); path != "" {
		return expectOutcome(path, result)
	}
	return writeOutcome(os.Stdout, result)
}

// expectOutcome fails with a unified diff when actual differs from the
// outcome stored at path.
func expectOutcome(path string, actual *outcome) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read expected outcome")
	}
	var expected outcome
	if err := yaml.Unmarshal(data, &expected); err != nil {
		return errors.Wrap(err, "decode expected outcome")
	}
	diff, err := outcomeDiff(&expected, actual)
	if err != nil {
		return err
	}
	if diff != "" {
		return fmt.Errorf("outcome mismatch:\n%s", diff)
	}
	return nil
}

func outcomeDiff(expected, actual *outcome) (string, error) {
	var e, a bytes.Buffer
	if err := writeOutcome(&e, expected); err != nil {
		return "", errors.Wrap(err, "encode expected outcome")
	}
	if err := writeOutcome(&a, actual); err != nil {
		return "", errors.Wrap(err, "encode actual outcome")
	}
	if bytes.Equal(e.Bytes(), a.Bytes()) {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e.String()),
		B:        difflib.SplitLines(a.String()),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if err != nil {
		return "", errors.Wrap(err, "diff outcomes")
	}
	return diff, nil
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	return &sc, nil
}

func writeOutcome(w io.Writer, o *outcome) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(o); err != nil {
		return err
	}
	return enc.Close()
}

func resolveParticipant(who string) (thor.Address, error) {
	if strings.HasPrefix(who, "0x") {
		return thor.ParseAddress(who)
	}
	if who == "" {
		return thor.Address{}, errors.New("missing participant")
	}
	return thor.BytesToAddress([]byte(who)), nil
}

// replay runs sc on a fresh in-memory host.
func replay(ctx context.Context, sc *scenario, showProgress bool) (*outcome, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var admin thor.Address
	if sc.Admin != "" {
		if admin, err = resolveParticipant(sc.Admin); err != nil {
			return nil, errors.Wrap(err, "admin")
		}
	}
	policy, ok := ledger.PolicyByName(sc.Policy)
	if !ok {
		return nil, fmt.Errorf("unknown policy %q", sc.Policy)
	}
	seed, err := parseAmount(sc.SeedStake)
	if err != nil {
		return nil, errors.Wrap(err, "seed-stake")
	}
	h, err := host.New(db, nil, host.Options{
		Pool:       feepool.Options{Admin: admin, Policy: policy, SeedStake: seed},
		StartBlock: sc.StartBlock,
	})
	if err != nil {
		return nil, err
	}

	if err := h.Configure(func(pool *feepool.FeePool, _ uint32) error {
		if sc.EpochDuration > 0 {
			if err := pool.SetEpochDuration(admin, sc.EpochDuration); err != nil {
				return err
			}
		}
		if sc.MinContribution != "" {
			v, err := parseAmount(sc.MinContribution)
			if err != nil {
				return err
			}
			return pool.SetMinContribution(admin, v)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "configure")
	}

	var bar *pb.ProgressBar
	if showProgress {
		bar = pb.New(len(sc.Steps)).SetMaxWidth(90).Start()
		defer bar.Finish()
	}

	names := make(map[string]thor.Address)
	claimed := make(map[thor.Address]*big.Int)
	for i, s := range sc.Steps {
		reward, err := applyStep(ctx, h, admin, s)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d (%s)", i, s.Op)
		}
		switch activitydb.Op(s.Op) {
		case activitydb.OpStake, activitydb.OpUnstake, activitydb.OpClaim:
			addr, _ := resolveParticipant(s.Who)
			names[s.Who] = addr
			if claimed[addr] == nil {
				claimed[addr] = new(big.Int)
			}
			claimed[addr].Add(claimed[addr], reward)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return summarize(h, names, claimed)
}

func applyStep(ctx context.Context, h *host.Host, admin thor.Address, s step) (*big.Int, error) {
	if s.Op == opTick {
		_, err := h.Tick(s.Blocks)
		return nil, err
	}

	switch activitydb.Op(s.Op) {
	case activitydb.OpStake, activitydb.OpUnstake, activitydb.OpClaim:
		if s.Who == "" {
			return nil, errors.New("missing participant")
		}
	}

	var amount *big.Int
	switch activitydb.Op(s.Op) {
	case activitydb.OpStake, activitydb.OpUnstake, activitydb.OpAddFees, activitydb.OpAddChannel, activitydb.OpUpdateChannel:
		v, err := parseAmount(s.Amount)
		if err != nil {
			return nil, err
		}
		amount = v
	}

	// who is the participant, or the caller of admin operations
	who := admin
	if s.Who != "" {
		v, err := resolveParticipant(s.Who)
		if err != nil {
			return nil, err
		}
		who = v
	}
	participant, caller := who, who

	var fn host.UpdateFunc
	switch activitydb.Op(s.Op) {
	case activitydb.OpStake:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			return amount, nil, pool.Stake(participant, amount, block)
		}
	case activitydb.OpUnstake:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			reward, err := pool.Unstake(participant, amount, block)
			return amount, reward, err
		}
	case activitydb.OpClaim:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			if s.ToEpoch != nil {
				reward, err := pool.ClaimUntil(participant, *s.ToEpoch, block)
				return nil, reward, err
			}
			reward, err := pool.Claim(participant, block)
			return nil, reward, err
		}
	case activitydb.OpAddFees:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			return amount, nil, pool.AddPoolFees(caller, amount, block)
		}
	case activitydb.OpInitialize:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			genesis := block
			if s.Genesis != nil {
				genesis = *s.Genesis
			}
			return nil, nil, pool.InitializeStake(caller, genesis, block)
		}
	case activitydb.OpDAOHarvest:
		participant = feepool.PoolAddress
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			reward, err := pool.DAOHarvest(caller, block)
			return nil, reward, err
		}
	case activitydb.OpAddChannel:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			_, err := pool.AddChannel(participant, amount, block)
			return amount, nil, err
		}
	case activitydb.OpUpdateChannel:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			_, err := pool.UpdateChannel(participant, amount, block)
			return amount, nil, err
		}
	case activitydb.OpRemoveChannel:
		fn = func(pool *feepool.FeePool, block uint32) (*big.Int, *big.Int, error) {
			_, err := pool.RemoveChannel(participant, block)
			return nil, nil, err
		}
	default:
		return nil, fmt.Errorf("unknown op %q", s.Op)
	}

	receipt, err := h.Update(ctx, activitydb.Op(s.Op), participant, fn)
	if err != nil {
		return nil, err
	}
	return receipt.Activity.Reward, nil
}

func summarize(h *host.Host, names map[string]thor.Address, claimed map[thor.Address]*big.Int) (*outcome, error) {
	o := &outcome{Participants: make(map[string]*participantOutcome)}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	err := h.View(func(pool *feepool.FeePool, block uint32) error {
		o.Block = block
		if initialized, err := pool.IsInitialized(); err != nil {
			return err
		} else if initialized {
			if o.Epoch, err = pool.EpochID(block); err != nil {
				return err
			}
		}
		total, err := pool.TotalStaked()
		if err != nil {
			return err
		}
		o.TotalStaked = total.String()
		fees, err := pool.PoolFees()
		if err != nil {
			return err
		}
		o.PoolFees = fees.String()

		for _, name := range sorted {
			addr := names[name]
			info, err := pool.StakeInfo(addr)
			if err != nil {
				return err
			}
			p := &participantOutcome{
				Address: addr.String(),
				Staked:  info.StakedAmount.String(),
				Claimed: "0",
			}
			if v := claimed[addr]; v != nil {
				p.Claimed = v.String()
			}
			p.Claimable = "0"
			if info.StakedAmount.Sign() > 0 && o.Epoch > 0 {
				res, err := pool.Claimable(addr, block)
				if err != nil {
					return err
				}
				p.Claimable = res.Amount.String()
			}
			o.Participants[name] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}
