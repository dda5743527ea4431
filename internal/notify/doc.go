// Package notify delivers finished reports by email through gomail.
package notify
