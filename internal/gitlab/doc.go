// Package gitlab provides a minimal client for the GitLab REST API.
//
// Client lists the personal access tokens visible to a private token and
// reports failures through typed errors: HTTPStatusError (matching
// ErrUnauthorized and ErrNotFound through errors.Is), OperationError for
// transport failures, and ResponseDecodingError for malformed payloads.
package gitlab
