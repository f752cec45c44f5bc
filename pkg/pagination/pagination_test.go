package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeWindows(t *testing.T) {
	first := Compute(25, 1, 10)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNextPage)
	assert.False(t, first.HasPrevPage)

	last := Compute(25, 3, 10)
	assert.Equal(t, 3, last.TotalPages)
	assert.False(t, last.HasNextPage)
	assert.True(t, last.HasPrevPage)
	assert.Equal(t, 25, last.TotalItems)
}

func TestComputeEmpty(t *testing.T) {
	meta := Compute(0, 1, 10)
	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasNextPage)
	assert.False(t, meta.HasPrevPage)
}

func TestComputeExactMultiple(t *testing.T) {
	meta := Compute(20, 2, 10)
	assert.Equal(t, 2, meta.TotalPages)
	assert.False(t, meta.HasNextPage)
}

func TestOffsetAndNormalize(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))

	page, size := Normalize(0, 0)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = Normalize(4, 1000)
	assert.Equal(t, 4, page)
	assert.Equal(t, 1000, size)
}
