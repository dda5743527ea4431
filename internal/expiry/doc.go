// Package expiry classifies GitLab personal access tokens by how close they
// are to expiring.
//
// Classification is a pure function of the token, the current instant, and a
// warning threshold in days. Day counts use floor semantics, so a token that
// expired twelve hours ago is reported as expired one day ago.
package expiry
