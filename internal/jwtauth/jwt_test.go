package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
)

var jwtService = New(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var holder = id.HolderID("warehouse-7")
var expiresIn = time.Hour

func Test_IssueToken(t *testing.T) {
	token, err := jwtService.IssueToken(holder, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verified, err := jwtService.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, holder, verified)
}

func Test_IssueToken_EmptyHolder(t *testing.T) {
	_, err := jwtService.IssueToken(id.HolderNone, expiresIn)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
}

func Test_VerifyToken_InvalidToken(t *testing.T) {
	_, err := jwtService.VerifyToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_VerifyToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.IssueToken(holder, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_VerifyToken_WrongKey(t *testing.T) {
	other := New("different-key", "test-issuer", "test-audience")
	token, err := other.IssueToken(holder, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
