// Package validation holds the field rule sets for directory records.
//
// Candidates arrive as loosely typed field maps (decoded JSON, stored
// documents). Each field is first checked for shape, then its string value is
// run through go-playground/validator tags.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a field failure.
type Kind string

const (
	KindMissingField     Kind = "MissingField"
	KindTypeMismatch     Kind = "TypeMismatch"
	KindLengthOutOfRange Kind = "LengthOutOfRange"
	KindUnknownField     Kind = "UnknownField"
	KindImmutableField   Kind = "ImmutableField"
)

// ErrValidation is matched by every *Error.
var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// FieldError describes why one field was rejected.
type FieldError struct {
	Field    string `json:"field"`
	Kind     Kind   `json:"kind"`
	Expected string `json:"expected,omitempty"`
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
}

func (e FieldError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("%s is required", e.Field)
	case KindTypeMismatch:
		return fmt.Sprintf("%s must be a %s", e.Field, e.Expected)
	case KindLengthOutOfRange:
		return fmt.Sprintf("%s must be between %d and %d characters", e.Field, e.Min, e.Max)
	case KindUnknownField:
		return fmt.Sprintf("%s is not a known field", e.Field)
	case KindImmutableField:
		return fmt.Sprintf("%s cannot be changed", e.Field)
	default:
		return fmt.Sprintf("%s is invalid", e.Field)
	}
}

// Result maps field names to their failure. An empty Result is a success.
type Result map[string]FieldError

// OK reports whether no field failed.
func (r Result) OK() bool {
	return len(r) == 0
}

// Err returns nil for a successful result and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Fields: r}
}

// Fields lists the failed field names in order.
func (r Result) Fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error is the validation failure returned by record construction and writes.
type Error struct {
	Fields Result
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, name := range e.Fields.Fields() {
		msgs = append(msgs, e.Fields[name].Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// Rule constrains a single string field.
type Rule struct {
	Field string
	// Tag is a validator tag applied to the string value.
	Tag string
	Min int
	Max int
}

// RuleSet is the complete rule list for one record kind.
type RuleSet struct {
	Name      string
	Rules     []Rule
	Immutable []string
}

// Department rules: name is 5 to 20 characters.
var Department = RuleSet{
	Name: "department",
	Rules: []Rule{
		stringRule("name", 5, 20),
	},
	Immutable: []string{"id", "createdAt", "updatedAt"},
}

// Employee rules: three required strings, no length bounds.
var Employee = RuleSet{
	Name: "employee",
	Rules: []Rule{
		stringRule("firstName", 0, 0),
		stringRule("lastName", 0, 0),
		stringRule("department", 0, 0),
	},
	Immutable: []string{"id", "createdAt", "updatedAt"},
}

func stringRule(field string, min, max int) Rule {
	tag := "required"
	if min > 0 {
		tag += ",min=" + strconv.Itoa(min)
	}
	if max > 0 {
		tag += ",max=" + strconv.Itoa(max)
	}
	return Rule{Field: field, Tag: tag, Min: min, Max: max}
}

// ValidateDepartment checks a department candidate.
func ValidateDepartment(candidate map[string]any) Result {
	return Department.Validate(candidate)
}

// ValidateEmployee checks an employee candidate.
func ValidateEmployee(candidate map[string]any) Result {
	return Employee.Validate(candidate)
}

// Validate checks every rule against candidate. Fields without a rule are
// ignored.
func (rs RuleSet) Validate(candidate map[string]any) Result {
	res := Result{}
	for _, rule := range rs.Rules {
		value, ok := candidate[rule.Field]
		if !ok {
			res[rule.Field] = FieldError{Field: rule.Field, Kind: KindMissingField}
			continue
		}
		if fe, failed := rule.check(value); failed {
			res[rule.Field] = fe
		}
	}
	return res
}

// ValidatePatch checks the fields a patch sets. Unlike Validate, absent
// fields are fine while unknown and immutable ones are rejected.
func (rs RuleSet) ValidatePatch(patch map[string]any) Result {
	res := Result{}
	for field, value := range patch {
		if rs.immutable(field) {
			res[field] = FieldError{Field: field, Kind: KindImmutableField}
			continue
		}
		rule, ok := rs.rule(field)
		if !ok {
			res[field] = FieldError{Field: field, Kind: KindUnknownField}
			continue
		}
		if fe, failed := rule.check(value); failed {
			res[field] = fe
		}
	}
	return res
}

// Known reports whether field has a rule.
func (rs RuleSet) Known(field string) bool {
	_, ok := rs.rule(field)
	return ok
}

func (rs RuleSet) rule(field string) (Rule, bool) {
	for _, r := range rs.Rules {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

func (rs RuleSet) immutable(field string) bool {
	for _, f := range rs.Immutable {
		if f == field {
			return true
		}
	}
	return false
}

func (r Rule) check(value any) (FieldError, bool) {
	if value == nil {
		return FieldError{Field: r.Field, Kind: KindMissingField}, true
	}
	s, ok := value.(string)
	if !ok {
		return FieldError{Field: r.Field, Kind: KindTypeMismatch, Expected: "string"}, true
	}

	err := validate.Var(s, r.Tag)
	if err == nil {
		return FieldError{}, false
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return FieldError{Field: r.Field, Kind: KindTypeMismatch, Expected: "string"}, true
	}
	switch verrs[0].Tag() {
	case "required":
		return FieldError{Field: r.Field, Kind: KindMissingField}, true
	case "min", "max":
		return FieldError{Field: r.Field, Kind: KindLengthOutOfRange, Min: r.Min, Max: r.Max}, true
	default:
		return FieldError{Field: r.Field, Kind: KindTypeMismatch, Expected: "string"}, true
	}
}
