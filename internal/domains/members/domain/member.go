package domain

import (
	"errors"
	"strings"
)

var ErrEmptyName = errors.New("member name is required")

// Address is an immutable value object. It has no identity of its own and is
// embedded by whatever entity owns it.
type Address struct {
	city    string
	street  string
	zipcode string
}

// NewAddress constructs the value; there are no setters afterwards.
func NewAddress(city, street, zipcode string) Address {
	return Address{city: city, street: street, zipcode: zipcode}
}

func (a Address) City() string    { return a.city }
func (a Address) Street() string  { return a.street }
func (a Address) Zipcode() string { return a.zipcode }

// Member is referenced, never owned, by orders. The inverse member→orders
// collection is a query-only view served by the order repository.
type Member struct {
	ID      int64
	Name    string
	Address Address
}

// NewMember validates and constructs a member.
func NewMember(name string, address Address) (*Member, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	return &Member{Name: name, Address: address}, nil
}
