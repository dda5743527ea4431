package tests

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func repositoryRootDirectory(testInstance *testing.T) string {
	testInstance.Helper()
	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(currentWorkingDirectory)
}

func executeIntegrationCommand(repositoryRoot string, extraEnvironment []string, timeout time.Duration, arguments []string) (string, error) {
	executionContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "go", arguments...)
	command.Dir = repositoryRoot
	command.Env = append(append([]string{}, os.Environ()...), extraEnvironment...)

	outputBytes, runError := command.CombinedOutput()
	return string(outputBytes), runError
}

func runIntegrationCommand(testInstance *testing.T, repositoryRoot string, extraEnvironment []string, timeout time.Duration, arguments []string) string {
	testInstance.Helper()
	outputText, runError := executeIntegrationCommand(repositoryRoot, extraEnvironment, timeout, arguments)
	requireNoError(testInstance, runError, outputText)
	return outputText
}

func filterStructuredOutput(rawOutput string) string {
	lines := strings.Split(rawOutput, "\n")
	var filtered []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		filtered = append(filtered, line)
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, "\n") + "\n"
}

func requireNoError(testInstance *testing.T, err error, output string) {
	testInstance.Helper()
	if err != nil {
		testInstance.Fatalf("command failed: %v\n%s", err, output)
	}
}
