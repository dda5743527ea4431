package expiry

import (
	"fmt"
	"strings"

	"github.com/temirov/tokenwatch/internal/gitlab"
)

const (
	expiredStatusTemplateConstant       = "Expired (%d days ago)"
	expiringSoonStatusTemplateConstant  = "⚠️ Will expire in %d days"
	activeStatusTemplateConstant        = "Active (%d days left)"
	activeNoExpiryStatusMessageConstant = "Active (No expiration date)"
	invalidExpiryStatusTemplateConstant = "Invalid expiration date (%s)"
	invalidExpiryPolicyAbortValue       = "abort"
	invalidExpiryPolicyReportValue      = "report"
	unsupportedPolicyErrorTemplate      = "unsupported invalid expiry policy %q (expected abort or report)"
)

// Kind enumerates token expiry classifications.
type Kind string

// Supported classification kinds.
const (
	KindExpired        Kind = Kind("expired")
	KindExpiringSoon   Kind = Kind("expiring_soon")
	KindActive         Kind = Kind("active")
	KindActiveNoExpiry Kind = Kind("active_no_expiry")
	KindInvalidExpiry  Kind = Kind("invalid_expiry")
)

// Kinds lists every classification kind in reporting order.
var Kinds = []Kind{KindExpired, KindExpiringSoon, KindActive, KindActiveNoExpiry, KindInvalidExpiry}

// Status is the classification of a single token.
// Days carries days ago for KindExpired and days left for KindExpiringSoon and KindActive.
type Status struct {
	Kind Kind
	Days int
}

// String renders the human-readable status used in reports.
func (status Status) String() string {
	switch status.Kind {
	case KindExpired:
		return fmt.Sprintf(expiredStatusTemplateConstant, status.Days)
	case KindExpiringSoon:
		return fmt.Sprintf(expiringSoonStatusTemplateConstant, status.Days)
	case KindActive:
		return fmt.Sprintf(activeStatusTemplateConstant, status.Days)
	case KindActiveNoExpiry:
		return activeNoExpiryStatusMessageConstant
	default:
		return string(status.Kind)
	}
}

// ClassifiedToken pairs a token with its computed status.
type ClassifiedToken struct {
	Token  gitlab.PersonalAccessToken
	Status Status
	Err    error
}

// StatusText renders the status, describing the offending value for invalid expiry timestamps.
func (classified ClassifiedToken) StatusText() string {
	if classified.Status.Kind == KindInvalidExpiry {
		return fmt.Sprintf(invalidExpiryStatusTemplateConstant, classified.Token.ExpiresAtText())
	}
	return classified.Status.String()
}

// InvalidExpiryPolicy selects how unparseable expiry timestamps are handled.
type InvalidExpiryPolicy string

// Supported policies.
const (
	InvalidExpiryPolicyAbort  InvalidExpiryPolicy = InvalidExpiryPolicy(invalidExpiryPolicyAbortValue)
	InvalidExpiryPolicyReport InvalidExpiryPolicy = InvalidExpiryPolicy(invalidExpiryPolicyReportValue)
)

// ParseInvalidExpiryPolicy normalizes a textual policy; empty input selects InvalidExpiryPolicyAbort.
func ParseInvalidExpiryPolicy(value string) (InvalidExpiryPolicy, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	switch normalizedValue {
	case "", invalidExpiryPolicyAbortValue:
		return InvalidExpiryPolicyAbort, nil
	case invalidExpiryPolicyReportValue:
		return InvalidExpiryPolicyReport, nil
	default:
		return "", fmt.Errorf(unsupportedPolicyErrorTemplate, value)
	}
}
