package expiry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/temirov/tokenwatch/internal/gitlab"
)

const (
	fullPrecisionLayoutConstant           = time.RFC3339Nano
	zonelessFullPrecisionLayoutConstant   = "2006-01-02T15:04:05.999999999"
	dateOnlyLayoutConstant                = time.DateOnly
	dayDurationConstant                   = 24 * time.Hour
	invalidTimestampErrorTemplateConstant = "expiry timestamp %q matches neither full precision nor date-only format"
	negativeThresholdErrorTemplate        = "expiry threshold must not be negative: %d"
	tokenClassificationErrorTemplate      = "token %d (%s): %w"
)

var acceptedLayouts = []string{
	fullPrecisionLayoutConstant,
	zonelessFullPrecisionLayoutConstant,
	dateOnlyLayoutConstant,
}

// ErrInvalidTimestamp is matched by InvalidTimestampError through errors.Is.
var ErrInvalidTimestamp = errors.New("invalid expiry timestamp")

// InvalidTimestampError reports an expiry value in an unsupported format.
type InvalidTimestampError struct {
	Value string
}

// Error describes the rejected timestamp.
func (timestampError InvalidTimestampError) Error() string {
	return fmt.Sprintf(invalidTimestampErrorTemplateConstant, timestampError.Value)
}

// Is matches ErrInvalidTimestamp.
func (timestampError InvalidTimestampError) Is(target error) bool {
	return target == ErrInvalidTimestamp
}

// ParseExpiry parses a full precision timestamp or a date-only value and returns it in UTC.
// Date-only values resolve to midnight UTC; zoneless values are treated as UTC.
func ParseExpiry(value string) (time.Time, error) {
	trimmedValue := strings.TrimSpace(value)
	for _, layout := range acceptedLayouts {
		parsedTime, parseError := time.ParseInLocation(layout, trimmedValue, time.UTC)
		if parseError == nil {
			return parsedTime.UTC(), nil
		}
	}
	return time.Time{}, InvalidTimestampError{Value: value}
}

// DaysBetween returns the number of whole days from now until target, floored toward negative infinity.
// Twelve hours in the past is -1, twelve hours in the future is 0.
func DaysBetween(now time.Time, target time.Time) int {
	difference := target.Sub(now)
	days := difference / dayDurationConstant
	if difference < 0 && difference%dayDurationConstant != 0 {
		days--
	}
	return int(days)
}

// Classifier assigns expiry statuses relative to a warning threshold.
type Classifier struct {
	thresholdDays int
}

// NewClassifier constructs a Classifier flagging tokens expiring within thresholdDays (inclusive).
func NewClassifier(thresholdDays int) (Classifier, error) {
	if thresholdDays < 0 {
		return Classifier{}, fmt.Errorf(negativeThresholdErrorTemplate, thresholdDays)
	}
	return Classifier{thresholdDays: thresholdDays}, nil
}

// ThresholdDays reports the configured warning threshold.
func (classifier Classifier) ThresholdDays() int {
	return classifier.thresholdDays
}

// Classify computes the status of token relative to now.
func (classifier Classifier) Classify(token gitlab.PersonalAccessToken, now time.Time) (Status, error) {
	if !token.HasExpiry() {
		return Status{Kind: KindActiveNoExpiry}, nil
	}

	expiresAt, parseError := ParseExpiry(token.ExpiresAtText())
	if parseError != nil {
		return Status{}, parseError
	}

	daysRemaining := DaysBetween(now.UTC(), expiresAt)
	switch {
	case daysRemaining < 0:
		return Status{Kind: KindExpired, Days: -daysRemaining}, nil
	case daysRemaining <= classifier.thresholdDays:
		return Status{Kind: KindExpiringSoon, Days: daysRemaining}, nil
	default:
		return Status{Kind: KindActive, Days: daysRemaining}, nil
	}
}

// ClassifyToken classifies a token and applies the invalid expiry policy.
// Under InvalidExpiryPolicyAbort an unparseable timestamp is returned as an error;
// under InvalidExpiryPolicyReport it is captured on the returned ClassifiedToken.
func (classifier Classifier) ClassifyToken(token gitlab.PersonalAccessToken, now time.Time, policy InvalidExpiryPolicy) (ClassifiedToken, error) {
	status, classificationError := classifier.Classify(token, now)
	if classificationError == nil {
		return ClassifiedToken{Token: token, Status: status}, nil
	}

	if policy == InvalidExpiryPolicyReport && errors.Is(classificationError, ErrInvalidTimestamp) {
		return ClassifiedToken{
			Token:  token,
			Status: Status{Kind: KindInvalidExpiry},
			Err:    classificationError,
		}, nil
	}

	return ClassifiedToken{}, fmt.Errorf(tokenClassificationErrorTemplate, token.ID, token.Name, classificationError)
}
