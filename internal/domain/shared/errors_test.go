package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("loading lead: %w", NewDomainError("NOT_FOUND", "Lead not found"))

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrForbidden))
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "ASC"}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10, OrderDir: "sideways"}.Normalize()
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 20, f.Offset())
}

func TestNewPaginated_TotalPages(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPaginated([]int{}, 0, 1, 10)
	assert.Equal(t, 0, p.TotalPages)
}
