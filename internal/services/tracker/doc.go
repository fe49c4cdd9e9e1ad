// Package tracker hosts the multi-tenant task-tracking service.
//
// Users own projects and projects own tasks. Every project and task read or
// write is scoped to the authenticated user, and a resource owned by someone
// else is reported exactly like a missing one.
package tracker
