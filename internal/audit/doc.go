// Package audit implements the personal access token expiry check used by the
// tokenwatch CLI.
//
// It exposes CommandBuilder for wiring the check Cobra command, Service for
// driving the fetch, classify, render and notify pipeline programmatically, and
// the collaborator abstractions (token listing, notification, metrics, clock)
// that tests substitute.
package audit
