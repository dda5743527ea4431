package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/gitlab"
	"github.com/temirov/tokenwatch/internal/report"
)

const (
	expectedHeaderConstant = "<h2>GitLab Token Expiry Check (Current time: 2024-01-01 00:00:00.000000+00:00)</h2>\n<hr>\n"
	expectedBlockConstant  = "<b>Token ID:</b> 1<br><b>Token Name:</b> ci<br><b>Created At:</b> 2023-06-01T00:00:00.000Z<br>" +
		"<b>Expires At:</b> 2024-01-15<br><b>Status:</b> ⚠️ Will expire in 14 days<br><br>" +
		"<b>--------------------------------------------------------</b><br>\n"
)

var testCheckedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func stringPointer(value string) *string {
	return &value
}

func TestRendererRenderHeader(testInstance *testing.T) {
	renderer, rendererError := report.NewRenderer()
	require.NoError(testInstance, rendererError)

	renderedHeader, renderError := renderer.RenderHeader(testCheckedAt)
	require.NoError(testInstance, renderError)
	require.Equal(testInstance, expectedHeaderConstant, renderedHeader)
}

func TestRendererRenderHeaderConvertsToUTC(testInstance *testing.T) {
	renderer, rendererError := report.NewRenderer()
	require.NoError(testInstance, rendererError)

	offsetInstant := time.Date(2024, time.January, 1, 5, 30, 0, 250000000, time.FixedZone("UTC+5:30", 5*60*60+30*60))
	renderedHeader, renderError := renderer.RenderHeader(offsetInstant)
	require.NoError(testInstance, renderError)
	require.Contains(testInstance, renderedHeader, "Current time: 2024-01-01 00:00:00.250000+00:00")
}

func TestRendererRenderBlock(testInstance *testing.T) {
	renderer, rendererError := report.NewRenderer()
	require.NoError(testInstance, rendererError)

	testCases := []struct {
		name             string
		classified       expiry.ClassifiedToken
		expectedContains []string
		expectedExact    string
	}{
		{
			name: "expiring_soon_block",
			classified: expiry.ClassifiedToken{
				Token:  gitlab.PersonalAccessToken{ID: 1, Name: "ci", CreatedAt: "2023-06-01T00:00:00.000Z", ExpiresAt: stringPointer("2024-01-15")},
				Status: expiry.Status{Kind: expiry.KindExpiringSoon, Days: 14},
			},
			expectedExact: expectedBlockConstant,
		},
		{
			name: "missing_expiry_shows_marker",
			classified: expiry.ClassifiedToken{
				Token:  gitlab.PersonalAccessToken{ID: 2, Name: "forever", CreatedAt: "2023-06-01T00:00:00.000Z"},
				Status: expiry.Status{Kind: expiry.KindActiveNoExpiry},
			},
			expectedContains: []string{"<b>Expires At:</b> N/A<br>", "<b>Status:</b> Active (No expiration date)<br>"},
		},
		{
			name: "markup_in_name_is_escaped",
			classified: expiry.ClassifiedToken{
				Token:  gitlab.PersonalAccessToken{ID: 3, Name: "<script>", CreatedAt: "2023-06-01T00:00:00.000Z", ExpiresAt: stringPointer("2023-12-01T00:00:00.000Z")},
				Status: expiry.Status{Kind: expiry.KindExpired, Days: 31},
			},
			expectedContains: []string{"<b>Token Name:</b> &lt;script&gt;<br>", "Expired (31 days ago)"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			renderedBlock, renderError := renderer.RenderBlock(testCase.classified)
			require.NoError(testInstance, renderError)
			if len(testCase.expectedExact) > 0 {
				require.Equal(testInstance, testCase.expectedExact, renderedBlock)
			}
			for _, expectedFragment := range testCase.expectedContains {
				require.Contains(testInstance, renderedBlock, expectedFragment)
			}
		})
	}
}
