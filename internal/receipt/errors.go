package receipt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every error caused by bad user input.
	ErrValidation = errors.New("invalid receipt request")

	ErrInvalidTaxID   = fmt.Errorf("%w: tax id must have exactly 11 digits", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: amount is not a number", ErrValidation)
	ErrNegativeAmount = fmt.Errorf("%w: amount must not be negative", ErrValidation)
	ErrAmountTooLarge = fmt.Errorf("%w: amount is too large", ErrValidation)
	ErrInvalidDate    = fmt.Errorf("%w: date must be DD/MM/YYYY or YYYY-MM-DD", ErrValidation)
	// ErrUnprintableName is returned for names the receipt fonts cannot print unchanged.
	ErrUnprintableName = fmt.Errorf("%w: name has characters outside Windows-1252", ErrValidation)
)

// MissingFieldsError lists the request fields that were empty or zero.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrValidation }
