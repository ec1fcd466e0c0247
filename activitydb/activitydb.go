// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package activitydb journals applied pool operations in sqlite.
package activitydb

import (
	"context"
	"database/sql"
	"math/big"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/thor"
)

const selectActivity = "SELECT id, op, participant, blockNumber, epoch, amount, reward FROM activity"

type ActivityDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the journal at path.
func New(path string) (adb *ActivityDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if adb == nil {
			db.Close()
		}
	}()
	// one connection keeps an in-memory database alive and shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(activityTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	return &ActivityDB{
		path:          path,
		db:            db,
		driverVersion: driverVer,
	}, nil
}

// NewMem creates a journal in ram.
func NewMem() (*ActivityDB, error) {
	return New(":memory:")
}

func (db *ActivityDB) Close() error {
	return db.db.Close()
}

func (db *ActivityDB) Path() string {
	return db.path
}

func (db *ActivityDB) DriverVersion() string {
	return db.driverVersion
}

// Insert writes activities in one transaction.
func (db *ActivityDB) Insert(ctx context.Context, activities ...*Activity) error {
	if len(activities) == 0 {
		return nil
	}
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range activities {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity(id, op, participant, blockNumber, epoch, amount, reward) VALUES (?, ?, ?, ?, ?, ?, ?);",
			a.ID,
			string(a.Op),
			a.Participant.Bytes(),
			a.BlockNumber,
			a.Epoch,
			orZero(a.Amount).Bytes(),
			orZero(a.Reward).Bytes(),
		); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert activity %v", a.ID)
		}
	}
	metricInserted().Add(int64(len(activities)))
	return tx.Commit()
}

// Get returns the activity with the given id, nil when absent.
func (db *ActivityDB) Get(ctx context.Context, id string) (*Activity, error) {
	activities, err := db.query(ctx, selectActivity+" WHERE id = ?", id)
	if err != nil || len(activities) == 0 {
		return nil, err
	}
	return activities[0], nil
}

// Filter queries activities.
func (db *ActivityDB) Filter(ctx context.Context, filter *Filter) ([]*Activity, error) {
	if filter == nil {
		return db.query(ctx, selectActivity+" ORDER BY seq ASC")
	}
	var args []any
	stmt := selectActivity + " WHERE 1"
	if filter.Participant != nil {
		args = append(args, filter.Participant.Bytes())
		stmt += " AND participant = ?"
	}
	if len(filter.Ops) > 0 {
		stmt += " AND op IN (" + strings.TrimSuffix(strings.Repeat("?,", len(filter.Ops)), ",") + ")"
		for _, op := range filter.Ops {
			args = append(args, string(op))
		}
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ?"
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	metricQueries().AddWithLabel(1, map[string]string{"order": string(orDefault(filter.Order))})
	return db.query(ctx, stmt, args...)
}

func orDefault(o Order) Order {
	if o == "" {
		return ASC
	}
	return o
}

func (db *ActivityDB) query(ctx context.Context, stmt string, args ...any) ([]*Activity, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		var (
			id          string
			op          string
			participant []byte
			blockNumber uint32
			epoch       uint32
			amount      []byte
			reward      []byte
		)
		if err := rows.Scan(&id, &op, &participant, &blockNumber, &epoch, &amount, &reward); err != nil {
			return nil, err
		}
		activities = append(activities, &Activity{
			ID:          id,
			Op:          Op(op),
			Participant: thor.BytesToAddress(participant),
			BlockNumber: blockNumber,
			Epoch:       epoch,
			Amount:      new(big.Int).SetBytes(amount),
			Reward:      new(big.Int).SetBytes(reward),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}
