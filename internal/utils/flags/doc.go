// Package flags formats usage text for enumerated command-line flags.
package flags
