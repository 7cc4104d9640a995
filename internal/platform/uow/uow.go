// Package uow implements the unit-of-work contract on top of GORM
// transactions. Every statement issued through a unit is counted, which is
// how the per-strategy round-trip profiles of the order queries stay
// assertable in tests instead of being folklore.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// ErrForeignUnit signals that a unit of work was produced by another manager
// and cannot be unwrapped to a GORM session.
var ErrForeignUnit = errors.New("unit of work does not carry a gorm session")

type counterKey struct{}

const callbackName = "uow:count_statement"

type unit struct {
	db       *gorm.DB
	readOnly bool
	counter  *atomic.Int64
}

func (u *unit) IsReadOnly() bool  { return u.readOnly }
func (u *unit) Statements() int64 { return u.counter.Load() }

// DB unwraps a unit of work to its transaction-scoped GORM session.
func DB(u unitofwork.UnitOfWork) (*gorm.DB, error) {
	gu, ok := u.(*unit)
	if !ok || gu.db == nil {
		return nil, ErrForeignUnit
	}
	return gu.db, nil
}

// Manager begins GORM transactions as units of work.
type Manager struct {
	db             *gorm.DB
	readOnlyTxOpts bool
}

// Option tweaks manager behaviour.
type Option func(*Manager)

// WithoutReadOnlyTxOptions skips the driver-level read-only flag on ReadOnly
// units. Needed for engines that reject sql.TxOptions.ReadOnly (SQLite).
func WithoutReadOnlyTxOptions() Option {
	return func(m *Manager) { m.readOnlyTxOpts = false }
}

var _ unitofwork.Manager = (*Manager)(nil)

// NewManager wires the manager and installs statement-counting callbacks on
// the connection. Caller manages DB lifecycle.
func NewManager(db *gorm.DB, opts ...Option) *Manager {
	m := &Manager{db: db, readOnlyTxOpts: true}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if db != nil {
		installCounters(db)
	}
	return m
}

// ReadWrite runs fn inside a read-write transaction. Any error rolls the
// whole unit back; no partial aggregate writes become visible.
func (m *Manager) ReadWrite(ctx context.Context, fn func(context.Context, unitofwork.UnitOfWork) error) error {
	counter := &atomic.Int64{}
	ctx = context.WithValue(ctx, counterKey{}, counter)
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &unit{db: tx, counter: counter})
	})
}

// ReadOnly runs fn inside a read-only transaction. Lazy associations bound to
// the unit may still resolve, but attempting to persist fails at the driver.
func (m *Manager) ReadOnly(ctx context.Context, fn func(context.Context, unitofwork.UnitOfWork) error) error {
	counter := &atomic.Int64{}
	ctx = context.WithValue(ctx, counterKey{}, counter)
	run := func(tx *gorm.DB) error {
		return fn(ctx, &unit{db: tx, readOnly: true, counter: counter})
	}
	if m.readOnlyTxOpts {
		return m.db.WithContext(ctx).Transaction(run, &sql.TxOptions{ReadOnly: true})
	}
	return m.db.WithContext(ctx).Transaction(run)
}

func installCounters(db *gorm.DB) {
	if db.Callback().Query().Get(callbackName) != nil {
		return
	}
	_ = db.Callback().Query().After("gorm:query").Register(callbackName, countStatement)
	_ = db.Callback().Row().After("gorm:row").Register(callbackName, countStatement)
	_ = db.Callback().Raw().After("gorm:raw").Register(callbackName, countStatement)
	_ = db.Callback().Create().After("gorm:create").Register(callbackName, countStatement)
	_ = db.Callback().Update().After("gorm:update").Register(callbackName, countStatement)
	_ = db.Callback().Delete().After("gorm:delete").Register(callbackName, countStatement)
}

func countStatement(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	if counter, ok := db.Statement.Context.Value(counterKey{}).(*atomic.Int64); ok {
		counter.Add(1)
	}
}
