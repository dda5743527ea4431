package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenwatch/internal/utils"
)

const (
	testEnvironmentPrefixConstant                  = "TESTTOKENWATCH"
	testThresholdKeyConstant                       = "report.threshold_days"
	testTimeoutKeyConstant                         = "gitlab.timeout"
	testDefaultThresholdConstant                   = 30
	testConfigFileNameConstant                     = "config.yaml"
	testConfigContentTemplateConstant              = "report:\n  threshold_days: %d\n"
	testEmbeddedContentTemplateConstant            = "report:\n  threshold_days: %d\ngitlab:\n  timeout: 45s\n  scopes: api,read_user\n"
	testThresholdEnvironmentVariableConstant       = "TESTTOKENWATCH_REPORT_THRESHOLD_DAYS"
	testCaseEmbeddedMessageConstant                = "embedded configuration merges"
	testCaseFileMessageConstant                    = "config file overrides embedded"
	testCaseEnvironmentMessageConstant             = "environment overrides file"
	testConfigurationNameConstant                  = "config"
	testConfigurationTypeConstant                  = "yaml"
	configurationLoaderSubtestNameTemplateConstant = "%d_%s"
)

type configurationFixture struct {
	Report configurationReportFixture `mapstructure:"report"`
	GitLab configurationGitLabFixture `mapstructure:"gitlab"`
}

type configurationReportFixture struct {
	ThresholdDays int `mapstructure:"threshold_days"`
}

type configurationGitLabFixture struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Scopes  []string      `mapstructure:"scopes"`
}

func TestConfigurationLoaderLoadConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                     string
		embeddedThreshold        int
		fileThreshold            int
		environmentThreshold     string
		expectedThreshold        int
		expectConfigurationFiles bool
	}{
		{
			name:              testCaseEmbeddedMessageConstant,
			embeddedThreshold: 14,
			expectedThreshold: 14,
		},
		{
			name:                     testCaseFileMessageConstant,
			embeddedThreshold:        14,
			fileThreshold:            7,
			expectedThreshold:        7,
			expectConfigurationFiles: true,
		},
		{
			name:                     testCaseEnvironmentMessageConstant,
			embeddedThreshold:        14,
			fileThreshold:            7,
			environmentThreshold:     "60",
			expectedThreshold:        60,
			expectConfigurationFiles: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			tempDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if testCase.expectConfigurationFiles {
				configurationFilePath = filepath.Join(tempDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileThreshold)
				writeError := os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600)
				require.NoError(testInstance, writeError)
			}

			if len(testCase.environmentThreshold) > 0 {
				testInstance.Setenv(testThresholdEnvironmentVariableConstant, testCase.environmentThreshold)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{tempDirectory})
			configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testEmbeddedContentTemplateConstant, testCase.embeddedThreshold)), testConfigurationTypeConstant)

			defaultValues := map[string]any{
				testThresholdKeyConstant: testDefaultThresholdConstant,
				testTimeoutKeyConstant:   "30s",
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedThreshold, loadedConfiguration.Report.ThresholdDays)
			require.Equal(testInstance, 45*time.Second, loadedConfiguration.GitLab.Timeout)
			require.Equal(testInstance, []string{"api", "read_user"}, loadedConfiguration.GitLab.Scopes)

			if testCase.expectConfigurationFiles {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderDefaultsApplyWithoutSources(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})

	defaultValues := map[string]any{
		testThresholdKeyConstant: testDefaultThresholdConstant,
		testTimeoutKeyConstant:   "30s",
	}

	loadedConfiguration := configurationFixture{}
	metadata, loadError := configurationLoader.LoadConfiguration("", defaultValues, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testDefaultThresholdConstant, loadedConfiguration.Report.ThresholdDays)
	require.Equal(testInstance, 30*time.Second, loadedConfiguration.GitLab.Timeout)
	require.Empty(testInstance, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	missingPath := filepath.Join(testInstance.TempDir(), "absent.yaml")
	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(missingPath, nil, &loadedConfiguration)
	require.Error(testInstance, loadError)
}
