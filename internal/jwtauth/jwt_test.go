package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-signing-key", "eventdesk-test")

	token, err := svc.GenerateToken("owner-42", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-42", claims.OwnerID)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := New("test-signing-key", "eventdesk-test")

	token, err := svc.GenerateToken("owner-42", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := New("key-a", "eventdesk-test")
	verifier := New("key-b", "eventdesk-test")

	token, err := issuer.GenerateToken("owner-42", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := New("test-signing-key", "eventdesk-test")
	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
