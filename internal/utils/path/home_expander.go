package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant               = "~"
	tildeForwardSlashPrefixConstant   = "~/"
	homeDirectoryUnavailableTemplate  = "unable to expand %s: %w"
	homeDirectoryEmptyMessageConstant = "home directory is empty"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// ErrHomeDirectoryUnavailable indicates a tilde path could not be expanded.
var ErrHomeDirectoryUnavailable = errors.New(homeDirectoryEmptyMessageConstant)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander converts output paths such as report and metrics textfile locations to usable file system paths.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves a leading "~" or "~/" to the user's home directory and cleans the result.
// Paths without a tilde prefix, including "~user" forms, are only cleaned.
func (expander *HomeExpander) Expand(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return "", nil
	}

	relativePath, hasHomePrefix := homeRelativePath(trimmedPath)
	if !hasHomePrefix {
		return filepath.Clean(trimmedPath), nil
	}

	homeDirectory, homeError := expander.resolveHomeDirectory()
	if homeError != nil {
		return "", fmt.Errorf(homeDirectoryUnavailableTemplate, trimmedPath, homeError)
	}

	return filepath.Join(homeDirectory, relativePath), nil
}

func homeRelativePath(candidatePath string) (string, bool) {
	if candidatePath == tildeSymbolConstant {
		return "", true
	}
	if strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant) {
		return strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant), true
	}
	if strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix) {
		return strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix), true
	}
	return "", false
}

func (expander *HomeExpander) resolveHomeDirectory() (string, error) {
	if expander == nil {
		return "", ErrHomeDirectoryUnavailable
	}
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
		if expander.homeDirectoryError == nil && len(strings.TrimSpace(expander.homeDirectory)) == 0 {
			expander.homeDirectoryError = ErrHomeDirectoryUnavailable
		}
	})
	return expander.homeDirectory, expander.homeDirectoryError
}
