package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderPrefix  = "<"
	choicePlaceholderSuffix  = ">"
	choiceSeparatorLiteral   = "|"
	choiceUsageEmptyTemplate = "`%s`"
	choiceUsageFullTemplate  = "`%s` %s"
)

// ChoiceSet describes the accepted values of an enumerated flag and its default.
type ChoiceSet struct {
	defaultChoice string
	choices       []string
}

// NewChoiceSet normalizes choices to lower case, drops blanks and duplicates, and records the default.
func NewChoiceSet(defaultChoice string, choices ...string) ChoiceSet {
	normalizedChoices := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalizedChoice := strings.ToLower(strings.TrimSpace(choice))
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		normalizedChoices = append(normalizedChoices, normalizedChoice)
	}
	return ChoiceSet{
		defaultChoice: strings.ToLower(strings.TrimSpace(defaultChoice)),
		choices:       normalizedChoices,
	}
}

// Usage renders a flag usage string with the default choice capitalized inside the placeholder,
// for example "`<ABORT|report>` Handling of unparseable expiry dates".
func (choiceSet ChoiceSet) Usage(description string) string {
	highlightedChoices := make([]string, 0, len(choiceSet.choices))
	for _, choice := range choiceSet.choices {
		if choice == choiceSet.defaultChoice {
			highlightedChoices = append(highlightedChoices, strings.ToUpper(choice))
			continue
		}
		highlightedChoices = append(highlightedChoices, choice)
	}

	placeholder := choicePlaceholderPrefix + strings.Join(highlightedChoices, choiceSeparatorLiteral) + choicePlaceholderSuffix
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// Contains reports whether value names one of the choices, ignoring case and surrounding whitespace.
func (choiceSet ChoiceSet) Contains(value string) bool {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	for _, choice := range choiceSet.choices {
		if choice == normalizedValue {
			return true
		}
	}
	return false
}
