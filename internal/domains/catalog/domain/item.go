package domain

import (
	"errors"
	"strings"
)

// Kind discriminates the closed set of catalog item variants. New variants
// are added here, not through subtyping.
type Kind string

const (
	KindBook Kind = "book"
)

var (
	ErrEmptyName         = errors.New("item name is required")
	ErrInvalidPrice      = errors.New("item price must not be negative")
	ErrInvalidQuantity   = errors.New("stock quantity must be greater than zero")
	ErrInsufficientStock = errors.New("not enough stock for requested quantity")
)

// BookDetails carries the book-specific fields of an item.
type BookDetails struct {
	Author string
	ISBN   string
}

// Item is a stock-tracked catalog entry. The stock counter is the only piece
// of mutable state shared across order aggregates, and the add/remove
// invariant lives here with the data.
type Item struct {
	ID            int64
	Kind          Kind
	Name          string
	Price         int64
	StockQuantity int
	Book          *BookDetails
}

// NewBook validates and constructs a book-kind item.
func NewBook(name string, price int64, stock int, author, isbn string) (*Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		Kind:          KindBook,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		Book:          &BookDetails{Author: author, ISBN: isbn},
	}, nil
}

// AddStock increases the counter. Aside from quantity validation it has no
// failure mode.
func (i *Item) AddStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.StockQuantity += quantity
	return nil
}

// RemoveStock decreases the counter, failing without applying anything when
// the stock would go negative.
func (i *Item) RemoveStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	rest := i.StockQuantity - quantity
	if rest < 0 {
		return ErrInsufficientStock
	}
	i.StockQuantity = rest
	return nil
}
