// Package agent holds the static catalog of selectable agents.
//
// Each agent names a routing target: a display identity, a default webhook
// endpoint, and an optional access secret. The registry is lookup-only;
// which agent is active is a selection held by the controller, not state
// owned here. Secret verification goes through CredentialChecker so the
// plaintext-comparison placeholder can be replaced by a real scheme without
// changing caller contracts.
package agent
