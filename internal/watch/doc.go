// Package watch observes the change marker for devstart's native restart
// mode. It monitors a single file for modification-time changes, debounces
// rapid updates, and notifies the session coordinator once per settled
// change.
package watch
