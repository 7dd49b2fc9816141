// ABOUTME: Package documentation for the controller
// ABOUTME: Explains the locking model and the send-time capture rule

// Package controller owns the chat application's state machine: the
// conversation list, per-conversation message logs, agent selection with its
// password gate, and the active document sources derived from replies.
//
// All state lives behind one mutex and every transition runs to completion
// under it. Webhook round-trips are the only suspension points; they run
// unlocked and close over the conversation id captured when the send began,
// so a reply always lands in its origin conversation no matter where the
// user has navigated meanwhile.
//
// Persistence is write-through and best-effort. Every mutation serializes
// the full state to the store; failures are logged and the in-memory model
// stays authoritative.
package controller
