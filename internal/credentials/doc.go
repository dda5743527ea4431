// Package credentials resolves the GitLab private token and the mail
// password from declarative sources.
//
// A source is written as env:NAME, file:/path, or a bare environment
// variable name and is bound to the Secret it provides, so parse and
// resolution errors say which credential is at fault. A source that yields
// nothing fails with a MissingSecretError matching ErrCredentialMissing.
package credentials
