// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activities

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/api/utils"
)

var knownOps = map[activitydb.Op]bool{
	activitydb.OpStake:         true,
	activitydb.OpUnstake:       true,
	activitydb.OpClaim:         true,
	activitydb.OpAddFees:       true,
	activitydb.OpInitialize:    true,
	activitydb.OpDAOHarvest:    true,
	activitydb.OpAddChannel:    true,
	activitydb.OpRemoveChannel: true,
	activitydb.OpUpdateChannel: true,
}

type Activities struct {
	db    *activitydb.ActivityDB
	limit uint64
}

func New(db *activitydb.ActivityDB, limit uint64) *Activities {
	return &Activities{
		db,
		limit,
	}
}

func (a *Activities) filter(ctx context.Context, filter *Filter) ([]*Activity, error) {
	activities, err := a.db.Filter(ctx, &activitydb.Filter{
		Participant: filter.Participant,
		Ops:         filter.Ops,
		Range:       convertRange(filter.Range),
		Options: &activitydb.Options{
			Offset: filter.Options.Offset,
			Limit:  filter.Options.Limit,
		},
		Order: filter.Order,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Activity, len(activities))
	for i, act := range activities {
		out[i] = convertActivity(act)
	}
	return out, nil
}

func (a *Activities) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter Filter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Options != nil && filter.Options.Limit > a.limit {
		return utils.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", a.limit))
	}
	if filter.Options != nil && filter.Options.Offset > math.MaxInt64 {
		return utils.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if filter.Range != nil && filter.Range.From != nil && filter.Range.To != nil && *filter.Range.From > *filter.Range.To {
		return utils.BadRequest(errors.New("range.to must be greater than or equal to range.from"))
	}
	switch filter.Order {
	case "", activitydb.ASC, activitydb.DESC:
	default:
		return utils.BadRequest(fmt.Errorf("order: unknown value %q", filter.Order))
	}
	for i, op := range filter.Ops {
		if !knownOps[op] {
			return utils.BadRequest(fmt.Errorf("ops[%d]: unknown operation %q", i, op))
		}
	}
	if filter.Options == nil {
		// one more than the limit to detect an oversized result
		filter.Options = &Options{Limit: a.limit + 1}
	}

	out, err := a.filter(req.Context(), &filter)
	if err != nil {
		return err
	}
	if len(out) > int(a.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered activities exceeds the maximum allowed value of %d, please use pagination", a.limit))
	}
	return utils.WriteJSON(w, out)
}

func (a *Activities) handleGetActivity(w http.ResponseWriter, req *http.Request) error {
	act, err := a.db.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	if act == nil {
		return utils.NotFound(errors.New("activity not found"))
	}
	return utils.WriteJSON(w, convertActivity(act))
}

func (a *Activities) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /activities").
		HandlerFunc(utils.WrapHandlerFunc(a.handleFilter))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /activities/{id}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetActivity))
}
