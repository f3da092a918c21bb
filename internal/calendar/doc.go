// Package calendar provides the gateway to the Google Calendar API.
//
// It is a thin, retrying adapter: CRUD and query operations on events, a
// single centralized retry policy for transient failures, and optimistic
// concurrency via event version tokens (etags). Mutations never retry on
// version conflict, since a blind retry could overwrite a concurrent human
// edit.
//
// Events are never cached across conversation turns: every resolution
// re-queries live state so actions are not applied against stale data.
package calendar
