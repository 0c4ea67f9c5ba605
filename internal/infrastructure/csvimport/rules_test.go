package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(line int, kv ...string) *Row {
	r := &Row{Line: line, Data: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Data[kv[i]] = kv[i+1]
	}
	return r
}

func TestValidator(t *testing.T) {
	rules := []FieldRule{
		Field("Name").Required().MaxLength(5).Build(),
		Field("email").Email().Unique().Build(),
		Field("value").Decimal().Min(decimal.Zero).Build(),
		Field("code").Custom(func(v string) error {
			if v != strings.ToUpper(v) {
				return errors.New("must be upper case")
			}
			return nil
		}).Build(),
	}

	tests := []struct {
		name string
		row  *Row
		code string
	}{
		{"valid", row(2, "name", "Ann", "email", "a@x.test", "value", "10", "code", "AB"), ""},
		{"required", row(3, "name", ""), CodeRequired},
		{"too long", row(4, "name", "Annabelle"), CodeTooLong},
		{"bad email", row(5, "name", "Ann", "email", "Ann <a@x.test>"), CodeInvalidType},
		{"bad decimal", row(6, "name", "Ann", "value", "ten"), CodeInvalidType},
		{"negative", row(7, "name", "Ann", "value", "-1"), CodeOutOfRange},
		{"custom", row(8, "name", "Ann", "code", "ab"), CodeInvalid},
		{"duplicate", row(9, "name", "Ann", "email", "A@x.test"), CodeDuplicate},
	}

	v := NewValidator(rules, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := v.Errors().TotalCount()
			ok := v.ValidateRow(tt.row)
			if tt.code == "" {
				assert.True(t, ok)
				return
			}
			assert.False(t, ok)
			require.Equal(t, before+1, v.Errors().TotalCount())
			got := v.Errors().Errors()[before]
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.row.Line, got.Row)
		})
	}
}

func TestErrorCollection_Truncates(t *testing.T) {
	c := NewErrorCollection(2)
	for i := 1; i <= 3; i++ {
		c.Add(RowError{Row: i, Code: CodeRequired, Message: "value is required"})
	}
	assert.True(t, c.HasErrors())
	assert.True(t, c.IsTruncated())
	assert.Len(t, c.Errors(), 2)
	assert.Equal(t, 3, c.TotalCount())
	assert.Equal(t, "row 1: value is required", c.Errors()[0].Error())
}
