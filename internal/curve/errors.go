// internal/curve/errors.go
package curve

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive or fractional input quantities.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDirection is returned when a trade direction is neither Buy nor Sell.
	ErrInvalidDirection = errors.New("invalid trade direction")

	// ErrInvalidRecord is returned when a record fails structural validation.
	ErrInvalidRecord = errors.New("invalid curve record")
)
