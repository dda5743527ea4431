package tests

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	integrationTokensPathConstant    = "/api/v4/personal_access_tokens"
	integrationTokensPayloadConstant = `[
		{"id": 11, "name": "legacy", "created_at": "2000-01-01T00:00:00.000Z", "expires_at": "2001-01-01"},
		{"id": 12, "name": "service", "created_at": "2020-01-01T00:00:00.000Z", "expires_at": null}
	]`
	integrationReportFileNameConstant = "report.html"
	integrationPreviousReportConstant = "previous report"
)

func newGitLabIntegrationServer(testInstance *testing.T, responseStatus int) *httptest.Server {
	testInstance.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.URL.Path != integrationTokensPathConstant || request.Header.Get("PRIVATE-TOKEN") != "glpat-integration" {
			responseWriter.WriteHeader(http.StatusNotFound)
			return
		}
		responseWriter.WriteHeader(responseStatus)
		_, _ = responseWriter.Write([]byte(integrationTokensPayloadConstant))
	}))
	testInstance.Cleanup(server.Close)
	return server
}

func TestCheckIntegrationWritesReport(testInstance *testing.T) {
	server := newGitLabIntegrationServer(testInstance, http.StatusOK)
	reportPath := filepath.Join(testInstance.TempDir(), integrationReportFileNameConstant)

	outputText := runIntegrationCommand(testInstance, repositoryRootDirectory(testInstance), nil, integrationCommandTimeout, []string{
		"run", ".", "--log-format", "structured",
		"check", "--base-url", server.URL, "--report-path", reportPath, "--skip-email",
	})

	consoleOutput := filterStructuredOutput(outputText)
	require.Contains(testInstance, consoleOutput, "Token ID: 11, Name: legacy, Status: Expired (")
	require.Contains(testInstance, consoleOutput, "Token ID: 12, Name: service, Status: Active (No expiration date)")
	require.Contains(testInstance, consoleOutput, "Report written to "+reportPath)

	reportContents, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(reportContents), "<h2>GitLab Token Expiry Check (Current time: ")
	require.Contains(testInstance, string(reportContents), "<b>Token Name:</b> legacy<br>")
	require.Contains(testInstance, string(reportContents), "<b>Expires At:</b> N/A<br>")
}

func TestCheckIntegrationNotFoundKeepsPreviousReport(testInstance *testing.T) {
	server := newGitLabIntegrationServer(testInstance, http.StatusNotFound)
	reportPath := filepath.Join(testInstance.TempDir(), integrationReportFileNameConstant)
	require.NoError(testInstance, os.WriteFile(reportPath, []byte(integrationPreviousReportConstant), 0o600))

	outputText, runError := executeIntegrationCommand(repositoryRootDirectory(testInstance), nil, integrationCommandTimeout, []string{
		"run", ".", "check", "--base-url", server.URL, "--report-path", reportPath, "--skip-email",
	})
	require.Error(testInstance, runError)
	require.Contains(testInstance, outputText, "404 Not Found, check API URL or token permissions")

	reportContents, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, integrationPreviousReportConstant, string(reportContents))
}
