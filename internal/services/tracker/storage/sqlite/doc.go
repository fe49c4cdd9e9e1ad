// Package sqlite provides SQLite-backed tracker persistence.
//
// Schema changes live in embedded migrations applied on Open. Ownership
// cascades (user → projects → tasks) are enforced by foreign keys.
package sqlite
