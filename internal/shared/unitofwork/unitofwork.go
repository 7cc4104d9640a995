// Package unitofwork defines the explicit transaction scope handle passed
// through every repository operation. There is no ambient session: a handle
// is obtained from a Manager, lives for one request, and dies with it.
package unitofwork

import "context"

// UnitOfWork is an opaque handle for one transactional scope. Persistence
// adapters unwrap it to their concrete session type.
type UnitOfWork interface {
	// IsReadOnly reports whether mutations are forbidden in this scope.
	IsReadOnly() bool
	// Statements returns the number of storage round trips issued through
	// this scope so far. Adapters without instrumentation return zero.
	Statements() int64
}

// Manager begins units of work. Mutating use cases run under ReadWrite,
// list/read use cases under ReadOnly; both roll back entirely on error.
type Manager interface {
	ReadWrite(ctx context.Context, fn func(ctx context.Context, u UnitOfWork) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context, u UnitOfWork) error) error
}

type nopUnit struct {
	readOnly bool
}

func (u nopUnit) IsReadOnly() bool  { return u.readOnly }
func (u nopUnit) Statements() int64 { return 0 }

type nopManager struct{}

// NewNopManager returns a Manager whose units carry no transaction. In-memory
// adapters use it; fn errors still propagate to the caller.
func NewNopManager() Manager { return nopManager{} }

func (nopManager) ReadWrite(ctx context.Context, fn func(context.Context, UnitOfWork) error) error {
	return fn(ctx, nopUnit{})
}

func (nopManager) ReadOnly(ctx context.Context, fn func(context.Context, UnitOfWork) error) error {
	return fn(ctx, nopUnit{readOnly: true})
}
