package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mentor_chat/pkg/errors"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateAccessToken("u1", "alice", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("u1", "alice", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken("u1", "alice", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}
