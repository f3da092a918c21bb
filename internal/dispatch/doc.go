// Package dispatch executes resolved calendar actions. It is the only
// component that mutates the calendar, and it refuses to do so for actions
// that are incomplete, low-confidence, or destructive without confirmation.
package dispatch
