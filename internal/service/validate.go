package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/remitbd/remit-core/internal/domain"
)

// Validation reason codes surfaced to callers.
const (
	CodeAmountNotNumeric    = "amount_not_numeric"
	CodeAmountBelowMinimum  = "amount_below_minimum"
	CodeUnsupportedCurrency = "unsupported_currency"
	CodeSameCurrencyPair    = "same_currency_pair"
	CodeMissingField        = "missing_field"
	CodeInactiveReference   = "inactive_reference"
	CodeLimitExceeded       = "limit_exceeded"
	CodeNoActiveRate        = "no_active_rate"
)

// Validator performs the pure, side-effect-free submission checks.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Struct runs struct-tag validation and converts the first failure into a
// ValidationError with a stable reason code.
func (val *Validator) Struct(cmd any) error {
	err := val.v.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate struct: %w", err)
	}
	fe := fieldErrs[0]
	return newValidationError(CodeMissingField, fe.Field(),
		fmt.Sprintf("field failed %q constraint", fe.Tag()))
}

// Amount parses a user-supplied amount string into micros, enforcing the
// type-specific per-currency floor.
func (val *Validator) Amount(amount, currency string, floorMicros int64) (int64, error) {
	if !domain.IsSupportedCurrency(currency) {
		return 0, newValidationError(CodeUnsupportedCurrency, "currency",
			fmt.Sprintf("currency %q is not supported", currency))
	}
	micros, err := domain.ParseAmount(amount)
	if err != nil {
		return 0, newValidationError(CodeAmountNotNumeric, "amount",
			fmt.Sprintf("amount %q must be a positive number", amount))
	}
	if micros < floorMicros {
		return 0, newValidationError(CodeAmountBelowMinimum, "amount",
			fmt.Sprintf("amount is below the %s minimum of %s",
				currency, domain.NewMoney(floorMicros, currency)))
	}
	return micros, nil
}

// CurrencyPair validates an exchange pair: both supported, not identical.
func (val *Validator) CurrencyPair(from, to string) error {
	if !domain.IsSupportedCurrency(from) {
		return newValidationError(CodeUnsupportedCurrency, "from_currency",
			fmt.Sprintf("currency %q is not supported", from))
	}
	if !domain.IsSupportedCurrency(to) {
		return newValidationError(CodeUnsupportedCurrency, "to_currency",
			fmt.Sprintf("currency %q is not supported", to))
	}
	if from == to {
		return newValidationError(CodeSameCurrencyPair, "to_currency",
			"from_currency and to_currency must differ")
	}
	return nil
}
