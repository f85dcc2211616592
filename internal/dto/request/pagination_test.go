package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginatedRequestBounds(t *testing.T) {
	p := PaginatedRequest{Page: 3, PerPage: 10}
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 10, p.Limit())

	p = PaginatedRequest{}
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 20, p.Limit())

	p = PaginatedRequest{Page: 1, PerPage: 500}
	assert.Equal(t, 100, p.Limit())
}
