// =============================================================================
// Journal Batch Upload - Validation Engine
// =============================================================================
//
// Walks a BatchDraft and records a state for every checked field in the
// draft's StateTable. Data fields are never modified.
//
// RULES:
//   - Required fields (struct tag `validate:"present"`):
//       header: CompanyCode, DocType, DocDate, PostDate, FiscalPeriod,
//               DocText, Currency, RefDocNo, BusinessArea
//       item:   GlAccount, ItemText, HouseBank, BankAccountId
//     A field is present when its trimmed text is non-empty.
//   - Amount rule (item struct level): AmountDebit, AmountCredit and
//     AmountLc1 are marked Error together when none of them holds a
//     non-zero amount, otherwise all three are None.
//
// VALIDATION STRATEGY:
//   Every header and every item is validated as its own struct so that
//   each error can be tied to a FieldRef. The state table is rebuilt from
//   scratch on every pass, which makes the pass idempotent.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/journal-batch-upload/internal/canon"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

const (
	tagPresent = "present"
	tagAmount  = "amount"

	SeverityError = "error"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single failed field.
type ValidationError struct {
	Severity string

	// Field is the wire name of the field.
	Field string

	Value string

	// Rule is the failed tag ("present" or "amount").
	Rule string

	Message string

	HeaderIndex int

	// ItemIndex is types.HeaderLevel for header fields.
	ItemIndex int

	// RowNumber is the 1-based spreadsheet row of the record.
	RowNumber int
}

// Ref returns the state-table reference of the failed field.
func (e *ValidationError) Ref() types.FieldRef {
	return types.FieldRef{Header: e.HeaderIndex, Item: e.ItemIndex, Field: e.Field}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	loc := fmt.Sprintf("Header %d", e.HeaderIndex+1)
	if e.ItemIndex != types.HeaderLevel {
		loc += fmt.Sprintf(", Item %d", e.ItemIndex+1)
	}
	if e.RowNumber > 0 {
		loc += fmt.Sprintf(" (row %d)", e.RowNumber)
	}
	return fmt.Sprintf("[%s] %s, Field '%s': %s", strings.ToUpper(e.Severity), loc, e.Field, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of one validation pass.
type ValidationResult struct {
	// IsValid is true when no field anywhere in the draft is in error.
	IsValid bool

	// Errors in draft order.
	Errors []*ValidationError

	ErrorCount       int
	HeaderErrorCount int
	ItemErrorCount   int
	FieldsValidated  int
	HeadersValidated int
	ItemsValidated   int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks drafts. It is safe for concurrent use once built.
type Validator struct {
	validate *validator.Validate

	headerRequired []string
	itemRequired   []string
}

// New creates a Validator with the present tag and the amount rule
// registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation(tagPresent, present); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tagPresent, err))
	}
	v.RegisterStructValidation(amountRule, types.ItemDraft{})

	return &Validator{
		validate:       v,
		headerRequired: requiredFields(reflect.TypeOf(types.HeaderDraft{})),
		itemRequired:   requiredFields(reflect.TypeOf(types.ItemDraft{})),
	}
}

// HeaderRequired returns the required header fields in column order.
func (v *Validator) HeaderRequired() []string { return append([]string(nil), v.headerRequired...) }

// ItemRequired returns the required item fields in column order.
func (v *Validator) ItemRequired() []string { return append([]string(nil), v.itemRequired...) }

// IsChecked reports whether a field has a validation state on its record
// level: required fields and, for items, the three amounts.
func (v *Validator) IsChecked(ref types.FieldRef) bool {
	if ref.IsHeader() {
		return contains(v.headerRequired, ref.Field)
	}
	return contains(v.itemRequired, ref.Field) || types.IsAmountField(ref.Field)
}

// =============================================================================
// VALIDATION FUNCTIONS
// =============================================================================

// Validate checks the whole draft and rebuilds draft.States.
//
// RETURNS:
//   - The aggregated result. IsValid is false if any field was marked Error.
func (v *Validator) Validate(draft *types.BatchDraft) *ValidationResult {
	result := &ValidationResult{}
	draft.States = types.StateTable{}

	for hi := range draft.Headers {
		h := &draft.Headers[hi]
		errs := v.ValidateHeader(draft.States, hi, h)
		result.HeaderErrorCount += len(errs)
		result.Errors = append(result.Errors, errs...)
		result.FieldsValidated += len(v.headerRequired)
		result.HeadersValidated++

		for ii := range h.Items {
			errs := v.ValidateItem(draft.States, hi, ii, &h.Items[ii])
			result.ItemErrorCount += len(errs)
			result.Errors = append(result.Errors, errs...)
			result.FieldsValidated += len(v.itemRequired) + len(types.AmountFields)
			result.ItemsValidated++
		}
	}

	result.ErrorCount = len(result.Errors)
	result.IsValid = result.ErrorCount == 0
	return result
}

// ValidateHeader checks one header's own fields and writes their states.
func (v *Validator) ValidateHeader(states types.StateTable, hi int, h *types.HeaderDraft) []*ValidationError {
	for _, f := range v.headerRequired {
		states[types.HeaderRef(hi, f)] = types.StateNone
	}

	errs := v.check(h, func(fe validator.FieldError) *ValidationError {
		return &ValidationError{HeaderIndex: hi, ItemIndex: types.HeaderLevel, RowNumber: rowNumber(h.SourceRow)}
	})
	for _, e := range errs {
		states[e.Ref()] = types.StateError
	}
	return errs
}

// ValidateItem checks one item and writes the states of its required and
// amount fields.
func (v *Validator) ValidateItem(states types.StateTable, hi, ii int, it *types.ItemDraft) []*ValidationError {
	for _, f := range v.itemRequired {
		states[types.ItemRef(hi, ii, f)] = types.StateNone
	}
	for _, f := range types.AmountFields {
		states[types.ItemRef(hi, ii, f)] = types.StateNone
	}

	errs := v.check(it, func(fe validator.FieldError) *ValidationError {
		return &ValidationError{HeaderIndex: hi, ItemIndex: ii, RowNumber: rowNumber(it.SourceRow)}
	})
	for _, e := range errs {
		states[e.Ref()] = types.StateError
	}
	return errs
}

// Recheck re-evaluates the record that owns ref and updates only the state
// of ref's field. Editing any amount updates all three amount states. The
// returned state is the new state of ref; fields without a rule stay None
// and leave the table untouched.
func (v *Validator) Recheck(draft *types.BatchDraft, ref types.FieldRef) (types.FieldState, error) {
	if ref.Header < 0 || ref.Header >= len(draft.Headers) {
		return types.StateNone, fmt.Errorf("header %d: index out of range", ref.Header)
	}
	if !v.IsChecked(ref) {
		return types.StateNone, nil
	}
	if draft.States == nil {
		draft.States = types.StateTable{}
	}

	h := &draft.Headers[ref.Header]
	var errs []*ValidationError
	fields := []string{ref.Field}
	if ref.IsHeader() {
		errs = v.check(h, func(validator.FieldError) *ValidationError {
			return &ValidationError{HeaderIndex: ref.Header, ItemIndex: types.HeaderLevel}
		})
	} else {
		if ref.Item < 0 || ref.Item >= len(h.Items) {
			return types.StateNone, fmt.Errorf("item %d of header %d: index out of range", ref.Item, ref.Header)
		}
		errs = v.check(&h.Items[ref.Item], func(validator.FieldError) *ValidationError {
			return &ValidationError{HeaderIndex: ref.Header, ItemIndex: ref.Item}
		})
		if types.IsAmountField(ref.Field) {
			fields = types.AmountFields
		}
	}

	failed := map[string]bool{}
	for _, e := range errs {
		failed[e.Field] = true
	}
	for _, f := range fields {
		state := types.StateNone
		if failed[f] {
			state = types.StateError
		}
		r := ref
		r.Field = f
		draft.States[r] = state
	}
	return draft.States.Get(ref), nil
}

// check runs the struct rules and converts each failure with newErr, which
// supplies the location.
func (v *Validator) check(record any, newErr func(validator.FieldError) *ValidationError) []*ValidationError {
	err := v.validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError only happens for nil or non-struct input.
		panic(fmt.Sprintf("validation: %v", err))
	}

	out := make([]*ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		e := newErr(fe)
		e.Severity = SeverityError
		e.Field = fe.Field()
		e.Rule = fe.Tag()
		e.Value = fmt.Sprint(fe.Value())
		e.Message = message(fe)
		out = append(out, e)
	}
	return out
}

// =============================================================================
// RULES
// =============================================================================

func present(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func amountRule(sl validator.StructLevel) {
	it := sl.Current().Interface().(types.ItemDraft)
	if !canon.IsZeroAmount(it.AmountDebit) || !canon.IsZeroAmount(it.AmountCredit) || !canon.IsZeroAmount(it.AmountLc1) {
		return
	}
	sl.ReportError(it.AmountDebit, types.FieldAmountDebit, "AmountDebit", tagAmount, "")
	sl.ReportError(it.AmountCredit, types.FieldAmountCredit, "AmountCredit", tagAmount, "")
	sl.ReportError(it.AmountLc1, types.FieldAmountLc1, "AmountLc1", tagAmount, "")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case tagPresent:
		return fe.Field() + " is required"
	case tagAmount:
		return "one of AmountDebit, AmountCredit or AmountLc1 must be a non-zero amount"
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func requiredFields(t reflect.Type) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, tag := range strings.Split(f.Tag.Get("validate"), ",") {
			if tag == tagPresent {
				out = append(out, jsonName(f))
				break
			}
		}
	}
	return out
}

func rowNumber(sourceRow int) int {
	return sourceRow + 1
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
