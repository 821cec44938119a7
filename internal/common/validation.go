package common

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

// ValidationError is one failed rule on one record field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field '%s' (%v) %s", e.Field, e.Value, e.Message)
}

// Validator collects every failed rule instead of stopping at the first.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value and records each failure.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// Check records message against fieldName when ok is false.
func (v *Validator) Check(ok bool, fieldName string, value any, message string) *Validator {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: fieldName, Value: value, Message: message})
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// ErrorMessage joins all failures with "; ".
func (v *Validator) ErrorMessage() string {
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule returns nil when value passes.
type ValidationRule func(fieldName string, value any) *ValidationError

func Required(fieldName string, value any) *ValidationError {
	if s, ok := value.(string); !ok || strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func maxLen(n int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) > n {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at most %d characters", n)}
		}
		return nil
	}
}

var gstinPattern = regexp.MustCompile(`^[0-9A-Z]{15}$`)

// GSTIN accepts an empty value or a 15 character upper-case alphanumeric identifier.
// It checks shape only, not the checksum.
func GSTIN(fieldName string, value any) *ValidationError {
	s, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if s != "" && !gstinPattern.MatchString(s) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be 15 upper-case letters or digits"}
	}
	return nil
}

func NonNegative(fieldName string, value any) *ValidationError {
	v, ok := value.(float64)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a number"}
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a finite non-negative number"}
	}
	return nil
}

// balanceTolerance absorbs float noise from JSON round trips; amounts are in paise.
const balanceTolerance = 0.005

// ValidateRecord checks a record before it is stored as a bill.
func ValidateRecord(r entity.InvoiceRecord) error {
	sum := r.Amount + r.TaxAmount
	v := NewValidator().
		Field("supplierName", r.SupplierName, Required, maxLen(256)).
		Field("invoiceNumber", r.InvoiceNumber, maxLen(64)).
		Field("gstin", r.GSTIN, GSTIN).
		Field("amount", r.Amount, NonNegative).
		Field("taxPercent", r.TaxPercent, NonNegative).
		Field("taxAmount", r.TaxAmount, NonNegative).
		Field("totalAmount", r.TotalAmount, NonNegative).
		Check(r.TotalAmount > 0, "totalAmount", r.TotalAmount, "must be positive").
		Check(math.Abs(sum-r.TotalAmount) <= balanceTolerance, "totalAmount", r.TotalAmount,
			fmt.Sprintf("must equal amount + taxAmount (%v)", sum))
	if v.HasErrors() {
		return NewAppError(CodeValidation, v.ErrorMessage(), ErrValidation)
	}
	return nil
}
