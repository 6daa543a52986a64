package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(4, 2, "kitchen", "s3cret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(4), claims.UserID)
	assert.Equal(t, uint(2), claims.RestaurantID)
	assert.Equal(t, "kitchen", claims.Role)

	_, err = ParseToken(tok, "other")
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	tok, err := GenerateToken(4, 2, "waiter", "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(tok, "s3cret")
	assert.Error(t, err)
}

func TestTableToken(t *testing.T) {
	tok, err := GenerateTableToken(2, 7, "customer", "s3cret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(0), claims.UserID)
	assert.Equal(t, uint(2), claims.RestaurantID)
	assert.Equal(t, uint(7), claims.TableID)
	assert.Equal(t, "customer", claims.Role)
}
