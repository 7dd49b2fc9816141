// Package store provides durable persistence for ragchat using SQLite.
//
// # Design
//
// Unlike a normalized schema, conversation state is persisted as a single
// JSON blob per user scope. The in-memory controller state is the source of
// truth; storage is a durable cache with last-writer-wins semantics, which is
// acceptable under the single-active-client assumption. Three tables:
//
//   - chat_state: one JSON blob per scope key with a last_updated stamp
//   - app_session: the single session identity record
//   - preferences: key/value rows for selections that outlive conversations
//     (chosen agent, endpoint overrides, language, theme)
//
// # Error contract
//
// Missing and corrupt data are both reported as ErrNotFound. A parse that
// fails is never partially trusted; callers treat it identically to a fresh
// install.
package store
