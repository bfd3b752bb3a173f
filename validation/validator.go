// Package validation checks submitted form fields against declarative per-form rule tables.
//
// Rules are expressed as go-playground/validator tags evaluated with Var, so each field
// reports at most one violation (the first failing tag) and every field is checked.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oakhaven/storefront/apperrors"
)

// Kind selects how a raw field value is coerced before its tag is evaluated.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindTurns
)

// Rule declares the constraints of one field.
type Rule struct {
	Field    string
	Kind     Kind
	Tag      string
	Messages map[string]string
}

// Schema is the ordered rule list of a form type.
type Schema []Rule

// Result enumerates every violated field in schema order.
type Result struct {
	Valid  bool
	Errors []apperrors.FieldError
}

// Err returns nil for a valid result, otherwise a ValidationError listing all fields.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperrors.Validation(r.Errors)
}

var (
	personNameRe = regexp.MustCompile(`^[\p{L}\s'.-]+$`)
	// Australian landline or mobile, optionally with +61 and single space/dash separators.
	phoneRe    = regexp.MustCompile(`^(\+61 ?|0)[2-478]([ -]?[0-9]){8}$`)
	postcodeRe = regexp.MustCompile(`^[0-9]{4}$`)
)

// turn content and role limits
const (
	maxTurnContent = 2000
)

// Validator evaluates form schemas. It is safe for concurrent use.
type Validator struct {
	v       *validator.Validate
	schemas map[string]Schema
}

// New builds a Validator with the default storefront schemas.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "personname", personNameRe)
	mustRegister(v, "phone_au", phoneRe)
	mustRegister(v, "postcode", postcodeRe)
	return &Validator{v: v, schemas: DefaultSchemas()}
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate checks fields against the schema registered for form.
func (val *Validator) Validate(form string, fields map[string]any) Result {
	schema, ok := val.schemas[form]
	if !ok {
		return Result{Errors: []apperrors.FieldError{{Field: "form", Message: fmt.Sprintf("unknown form type %q", form)}}}
	}

	var errs []apperrors.FieldError
	for _, rule := range schema {
		errs = append(errs, val.checkRule(rule, fields[rule.Field])...)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (val *Validator) checkRule(rule Rule, raw any) []apperrors.FieldError {
	switch rule.Kind {
	case KindInt:
		n, ok := AsInt(raw)
		if !ok {
			return []apperrors.FieldError{{Field: rule.Field, Message: rule.message("number")}}
		}
		return val.check(rule.Field, n, rule)
	case KindTurns:
		return val.checkTurns(rule, raw)
	default:
		s, ok := toString(raw)
		if !ok {
			return []apperrors.FieldError{{Field: rule.Field, Message: rule.message("string")}}
		}
		return val.check(rule.Field, strings.TrimSpace(s), rule)
	}
}

func (val *Validator) check(path string, value any, rule Rule) []apperrors.FieldError {
	err := val.v.Var(value, rule.Tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return []apperrors.FieldError{{Field: path, Message: rule.message(verrs[0].Tag())}}
	}
	return []apperrors.FieldError{{Field: path, Message: rule.message("")}}
}

// checkTurns validates a bounded list of {role, content} objects.
func (val *Validator) checkTurns(rule Rule, raw any) []apperrors.FieldError {
	var turns []any
	switch t := raw.(type) {
	case nil:
	case []any:
		turns = t
	case []map[string]any:
		for _, m := range t {
			turns = append(turns, m)
		}
	default:
		return []apperrors.FieldError{{Field: rule.Field, Message: rule.message("array")}}
	}

	if errs := val.check(rule.Field, turns, rule); errs != nil {
		return errs
	}

	roleRule := Rule{Tag: "required,oneof=user assistant", Messages: map[string]string{
		"required": "Message role is required",
		"oneof":    "Message role must be user or assistant",
	}}
	contentRule := Rule{Tag: fmt.Sprintf("required,max=%d", maxTurnContent), Messages: map[string]string{
		"required": "Message content is required",
		"max":      fmt.Sprintf("Message content must be less than %d characters", maxTurnContent),
	}}

	var errs []apperrors.FieldError
	for i, item := range turns {
		base := fmt.Sprintf("%s[%d]", rule.Field, i)
		m, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, apperrors.FieldError{Field: base, Message: "Message must be an object"})
			continue
		}
		role, _ := toString(m["role"])
		content, _ := toString(m["content"])
		errs = append(errs, val.check(base+".role", role, roleRule)...)
		errs = append(errs, val.check(base+".content", strings.TrimSpace(content), contentRule)...)
	}
	return errs
}

func (r Rule) message(tag string) string {
	if msg, ok := r.Messages[tag]; ok {
		return msg
	}
	if msg, ok := r.Messages[""]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", r.Field)
}

func toString(raw any) (string, bool) {
	switch t := raw.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	default:
		return "", false
	}
}

// AsInt coerces a decoded JSON or form value to an int. Absent values read as 0.
func AsInt(raw any) (int, bool) {
	switch t := raw.(type) {
	case nil:
		return 0, true
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	default:
		return 0, false
	}
}
