// Package report renders token expiry reports as HTML fragments suitable for
// an email body and streams them to disk.
//
// Renderer owns the html/template definitions, FileWriter truncates the
// destination once per run and appends one block per token, and
// ProgressReporter echoes a short status line per token to the console.
package report
