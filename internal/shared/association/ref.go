// Package association represents to-one and to-many references between
// aggregates as explicit placeholders. A reference is either resolved or
// carries a resolver bound to the unit of work that produced it, so every
// round trip caused by lazy materialization is a visible call site.
package association

import (
	"context"
	"errors"
)

var (
	// ErrUnresolved is returned by the I/O-free accessors when the target
	// was never materialized.
	ErrUnresolved = errors.New("association not resolved")
	// ErrNoResolver is returned when a placeholder has no resolver bound,
	// typically because its unit of work has already ended.
	ErrNoResolver = errors.New("association has no resolver bound")
)

// ResolveFunc loads the association target for key. Repositories bind these
// closures to the live unit of work; once that scope ends the underlying
// transaction is gone and resolution fails.
type ResolveFunc[T any] func(ctx context.Context, key int64) (T, error)

// Ref is a to-one association.
type Ref[T any] struct {
	key      int64
	value    T
	resolved bool
	resolve  ResolveFunc[T]
}

// Resolved builds a reference whose target is already materialized.
func Resolved[T any](key int64, value T) *Ref[T] {
	return &Ref[T]{key: key, value: value, resolved: true}
}

// Lazy builds a placeholder that materializes through resolve on first use.
func Lazy[T any](key int64, resolve ResolveFunc[T]) *Ref[T] {
	return &Ref[T]{key: key, resolve: resolve}
}

// Key returns the target's identity without touching storage.
func (r *Ref[T]) Key() int64 { return r.key }

// IsResolved reports whether the target is materialized.
func (r *Ref[T]) IsResolved() bool { return r.resolved }

// Value returns the materialized target. It never performs I/O.
func (r *Ref[T]) Value() (T, error) {
	if !r.resolved {
		var zero T
		return zero, ErrUnresolved
	}
	return r.value, nil
}

// Resolve returns the target, loading it on first call. The load happens at
// most once per reference; repeated calls return the memoized value.
func (r *Ref[T]) Resolve(ctx context.Context) (T, error) {
	if r.resolved {
		return r.value, nil
	}
	if r.resolve == nil {
		var zero T
		return zero, ErrNoResolver
	}
	value, err := r.resolve(ctx, r.key)
	if err != nil {
		var zero T
		return zero, err
	}
	r.value = value
	r.resolved = true
	return r.value, nil
}

// Bind marks the reference resolved with an externally loaded value. Batch
// resolution uses this to fan a grouped query result out to many refs.
func (r *Ref[T]) Bind(value T) {
	r.value = value
	r.resolved = true
}

// Collection is a to-many association keyed by the owning aggregate's identity.
type Collection[T any] struct {
	ownerKey int64
	items    []T
	resolved bool
	resolve  ResolveFunc[[]T]
}

// ResolvedCollection builds a collection whose items are already materialized.
func ResolvedCollection[T any](ownerKey int64, items []T) *Collection[T] {
	return &Collection[T]{ownerKey: ownerKey, items: items, resolved: true}
}

// LazyCollection builds a placeholder collection loaded through resolve.
func LazyCollection[T any](ownerKey int64, resolve ResolveFunc[[]T]) *Collection[T] {
	return &Collection[T]{ownerKey: ownerKey, resolve: resolve}
}

// OwnerKey returns the owning aggregate's identity.
func (c *Collection[T]) OwnerKey() int64 { return c.ownerKey }

// IsResolved reports whether the items are materialized.
func (c *Collection[T]) IsResolved() bool { return c.resolved }

// Items returns the materialized items. It never performs I/O.
func (c *Collection[T]) Items() ([]T, error) {
	if !c.resolved {
		return nil, ErrUnresolved
	}
	return c.items, nil
}

// Resolve returns the items, loading them on first call.
func (c *Collection[T]) Resolve(ctx context.Context) ([]T, error) {
	if c.resolved {
		return c.items, nil
	}
	if c.resolve == nil {
		return nil, ErrNoResolver
	}
	items, err := c.resolve(ctx, c.ownerKey)
	if err != nil {
		return nil, err
	}
	c.items = items
	c.resolved = true
	return c.items, nil
}

// Bind marks the collection resolved with externally loaded items.
func (c *Collection[T]) Bind(items []T) {
	c.items = items
	c.resolved = true
}

// Append adds an item to a resolved collection. Aggregate roots use this
// while wiring owned children at construction time.
func (c *Collection[T]) Append(item T) {
	c.items = append(c.items, item)
	c.resolved = true
}
