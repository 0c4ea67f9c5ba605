package csvimport

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
	TypeEmail   FieldType = "email"
)

// FieldRule constrains one column
type FieldRule struct {
	Column    string
	Required  bool
	Type      FieldType
	MaxLength int
	MinValue  *decimal.Decimal
	Unique    bool
	Custom    func(value string) error
}

// FieldRuleBuilder builds a FieldRule fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: strings.ToLower(column), Type: TypeString}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

// MaxLength limits the value length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Min sets the lower bound of a decimal column
func (b *FieldRuleBuilder) Min(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Unique rejects values repeated within the file (case-insensitive)
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Custom adds a final check; its error message is reported as is
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.Custom = fn
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// Validator applies rules row by row and remembers values of unique columns
type Validator struct {
	rules  []FieldRule
	seen   map[string]map[string]int
	errors *ErrorCollection
}

// NewValidator creates a validator. Rules are checked in the given order.
func NewValidator(rules []FieldRule, maxErrors int) *Validator {
	return &Validator{
		rules:  rules,
		seen:   make(map[string]map[string]int),
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow reports whether every rule accepts the row
func (v *Validator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		if err := v.check(rule, row); err != nil {
			v.errors.Add(*err)
			ok = false
		}
	}
	return ok
}

func (v *Validator) check(rule FieldRule, row *Row) *RowError {
	value := row.Get(rule.Column)
	fail := func(code, msg string) *RowError {
		return &RowError{Row: row.Line, Column: rule.Column, Code: code, Message: msg, Value: value}
	}

	if value == "" {
		if rule.Required {
			return fail(CodeRequired, "value is required")
		}
		return nil
	}
	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		return fail(CodeTooLong, fmt.Sprintf("must be at most %d characters", rule.MaxLength))
	}

	switch rule.Type {
	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fail(CodeInvalidType, "must be a decimal number")
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			return fail(CodeOutOfRange, "must be at least "+rule.MinValue.String())
		}
	case TypeEmail:
		if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
			return fail(CodeInvalidType, "must be an email address")
		}
	}

	if rule.Unique {
		key := strings.ToLower(value)
		if v.seen[rule.Column] == nil {
			v.seen[rule.Column] = make(map[string]int)
		}
		if first, dup := v.seen[rule.Column][key]; dup {
			return fail(CodeDuplicate, fmt.Sprintf("duplicate of row %d", first))
		}
		v.seen[rule.Column][key] = row.Line
	}

	if rule.Custom != nil {
		if err := rule.Custom(value); err != nil {
			return fail(CodeInvalid, err.Error())
		}
	}
	return nil
}

// Errors returns the collected row errors
func (v *Validator) Errors() *ErrorCollection {
	return v.errors
}
