// Package utils exposes reusable helpers consumed by the tokenwatch commands.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, environment variables, and zap logging for the CLI, plus
// a DurableWriter that syncs report content to disk as it is written.
package utils
