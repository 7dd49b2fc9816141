// ABOUTME: Credential checking for password-gated agent selection
// ABOUTME: Isolates the secret comparison so it can be upgraded without touching callers

package agent

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialChecker verifies a submitted secret against an agent's access
// secret. It exists as a seam: callers never compare secrets directly.
type CredentialChecker interface {
	Check(a *Agent, secret string) bool
}

// SecretChecker is the default CredentialChecker. Stored secrets with a
// bcrypt prefix are verified as hashes; anything else is compared in
// constant time as plaintext.
type SecretChecker struct{}

// Check reports whether the submitted secret grants access to the agent.
// Agents without an access secret are always accessible.
func (SecretChecker) Check(a *Agent, secret string) bool {
	if a.AccessSecret == "" {
		return true
	}
	if strings.HasPrefix(a.AccessSecret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(a.AccessSecret), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.AccessSecret), []byte(secret)) == 1
}
