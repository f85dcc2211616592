package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("abc", 1))
	assert.Equal(t, 1, ParseInt("0", 1))
	assert.Equal(t, 1, ParseInt("-5", 1))
	assert.Equal(t, 42, ParseInt("42", 1))
}

func TestParseFloat(t *testing.T) {
	assert.Nil(t, ParseFloat(""))
	assert.Nil(t, ParseFloat("abc"))

	got := ParseFloat("9.99")
	require.NotNil(t, got)
	assert.Equal(t, 9.99, *got)
}

func TestGenerateTransactionID(t *testing.T) {
	id := GenerateTransactionID()
	assert.True(t, strings.HasPrefix(id, "TXN-"))
	assert.Len(t, strings.Split(id, "-"), 4)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestHashTokenIsDeterministic(t *testing.T) {
	a := HashToken("token-value")
	b := HashToken("token-value")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashToken("other-value"))
}
