package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	personalAccessTokensPathConstant        = "/api/v4/personal_access_tokens"
	privateTokenHeaderNameConstant          = "PRIVATE-TOKEN"
	acceptHeaderNameConstant                = "Accept"
	acceptHeaderValueConstant               = "application/json"
	baseURLFieldNameConstant                = "base_url"
	tokenFieldNameConstant                  = "token"
	requiredValueMessageConstant            = "value required"
	defaultRequestTimeoutConstant           = 30 * time.Second
	responseBodyPreviewLimitConstant        = 4096
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	statusErrorTemplateConstant             = "%s returned HTTP %d: %s"
	statusErrorWithoutBodyTemplateConstant  = "%s returned HTTP %d"
	notFoundHintMessageConstant             = "404 Not Found, check API URL or token permissions"
	listPersonalAccessTokensOperationName   = OperationName("ListPersonalAccessTokens")
)

// OperationName describes a named GitLab API workflow supported by the client.
type OperationName string

var (
	// ErrUnauthorized indicates the API rejected the credential (HTTP 401 or 403).
	ErrUnauthorized = errors.New("gitlab credential rejected")
	// ErrNotFound indicates the endpoint does not exist for the credential (HTTP 404).
	ErrNotFound = errors.New("gitlab endpoint not found")
)

// HTTPClient is the subset of *http.Client used by the client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ClientConfiguration describes how to reach the GitLab API.
type ClientConfiguration struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client performs authenticated requests against the GitLab REST API.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	token      string
}

// InvalidInputError surfaces validation issues for client configuration.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport failures for GitLab API operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// HTTPStatusError reports a non-success HTTP status returned by the API.
type HTTPStatusError struct {
	Operation  OperationName
	StatusCode int
	Body       string
}

// Error describes the unexpected status.
func (statusError HTTPStatusError) Error() string {
	if statusError.StatusCode == http.StatusNotFound {
		return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.StatusCode, notFoundHintMessageConstant)
	}
	if len(statusError.Body) == 0 {
		return fmt.Sprintf(statusErrorWithoutBodyTemplateConstant, statusError.Operation, statusError.StatusCode)
	}
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.StatusCode, statusError.Body)
}

// Is maps authentication and not-found statuses to their sentinel errors.
func (statusError HTTPStatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return statusError.StatusCode == http.StatusUnauthorized || statusError.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return statusError.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// NewClient constructs a GitLab API client. A nil httpClient selects an *http.Client honoring the configured timeout.
func NewClient(configuration ClientConfiguration, httpClient HTTPClient) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedToken := strings.TrimSpace(configuration.Token)
	if len(trimmedToken) == 0 {
		return nil, InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if httpClient == nil {
		requestTimeout := configuration.Timeout
		if requestTimeout <= 0 {
			requestTimeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    trimmedBaseURL,
		token:      trimmedToken,
	}, nil
}

// ListPersonalAccessTokens retrieves the personal access tokens visible to the credential, in server order.
func (client *Client) ListPersonalAccessTokens(requestContext context.Context) ([]PersonalAccessToken, error) {
	request, requestError := http.NewRequestWithContext(requestContext, http.MethodGet, client.baseURL+personalAccessTokensPathConstant, nil)
	if requestError != nil {
		return nil, OperationError{Operation: listPersonalAccessTokensOperationName, Cause: requestError}
	}
	request.Header.Set(privateTokenHeaderNameConstant, client.token)
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return nil, OperationError{Operation: listPersonalAccessTokensOperationName, Cause: responseError}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		bodyPreview, _ := io.ReadAll(io.LimitReader(response.Body, responseBodyPreviewLimitConstant))
		return nil, HTTPStatusError{
			Operation:  listPersonalAccessTokensOperationName,
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(string(bodyPreview)),
		}
	}

	var tokens []PersonalAccessToken
	if decodingError := json.NewDecoder(response.Body).Decode(&tokens); decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPersonalAccessTokensOperationName, Cause: decodingError}
	}

	return tokens, nil
}
