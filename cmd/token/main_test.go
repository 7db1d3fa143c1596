package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/company-directory/internal/auth"
)

func TestIssueToken(t *testing.T) {
	t.Setenv("STORE_DSN", "memory://localhost/companyDB")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", "ops", "--scope", "write", "--secret", "s3cret", "--ttl", "5"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "expires "))

	claims, err := auth.NewTokenManager("s3cret", 5).ParseToken(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeWrite))
}

func TestIssueTokenRejectsUnknownScope(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--subject", "ops", "--scope", "admin"})
	assert.EqualError(t, cmd.Execute(), `unknown scope "admin" (valid: read, write)`)
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--scope", "read"})
	assert.Error(t, cmd.Execute())
}
