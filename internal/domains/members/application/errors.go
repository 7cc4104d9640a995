package application

import (
	"errors"
	"fmt"

	"github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
)

// ErrInvalidInput signals the request violated a domain invariant.
var ErrInvalidInput = errors.New("invalid member input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyName) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
