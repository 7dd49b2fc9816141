// ABOUTME: Tests for agent credential checking
// ABOUTME: Covers bcrypt hashes, plaintext secrets and ungated agents

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCheckUngatedAgent(t *testing.T) {
	checker := SecretChecker{}
	a := &Agent{ID: "open"}

	assert.True(t, checker.Check(a, ""))
	assert.True(t, checker.Check(a, "anything"))
}

func TestCheckPlaintextSecret(t *testing.T) {
	checker := SecretChecker{}
	a := &Agent{ID: "gated", AccessSecret: "hunter2"}

	assert.True(t, checker.Check(a, "hunter2"))
	assert.False(t, checker.Check(a, "hunter3"))
	assert.False(t, checker.Check(a, ""))
	assert.False(t, checker.Check(a, "hunter2 "))
}

func TestCheckBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	checker := SecretChecker{}
	a := &Agent{ID: "gated", AccessSecret: string(hash)}

	assert.True(t, checker.Check(a, "correct horse"))
	assert.False(t, checker.Check(a, "wrong horse"))
	assert.False(t, checker.Check(a, string(hash)), "the hash itself is not the password")
}
