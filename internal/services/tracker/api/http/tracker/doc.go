// Package tracker exposes the task tracker over HTTP/JSON.
//
// Every handler runs its storage work inside a single unit of work and
// writes the response only after that unit of work commits.
package tracker
