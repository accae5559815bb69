// Package safety holds the crisis screening applied to user input and model
// output, and the fixed safety reply templates used when it fires.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// crisisPatterns is a fixed allow-list of self-harm/suicide risk phrases.
// It is a simple pattern match, not a classifier; do not extend it casually.
var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bkill myself\b`),
	regexp.MustCompile(`(?i)\bi want to die\b`),
	regexp.MustCompile(`(?i)\bsuicid(e|al)?\b`),
	regexp.MustCompile(`(?i)\bi can't go on\b`),
	regexp.MustCompile(`(?i)\bending it all\b`),
	regexp.MustCompile(`(?i)\bwant to end my life\b`),
}

var helplines = map[string]string{
	"IN": "+91-8888817666",
	"US": "988 / 1-800-273-8255",
	"UK": "Samaritans / 116 123",
}

const defaultHelplineCountry = "US"

// DetectCrisis reports whether text matches any crisis pattern. It has no
// side effects and is applied both to incoming messages and generated
// replies.
func DetectCrisis(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range crisisPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Helpline resolves a helpline for the given country code, falling back to
// the US line when the code is unknown or empty.
func Helpline(countryCode string) string {
	if line, ok := helplines[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return line
	}
	return helplines[defaultHelplineCountry]
}

// CrisisReply is the safety reply returned when the incoming message matches
// a crisis pattern.
func CrisisReply(countryCode string) string {
	return "I'm really sorry you're feeling this way. If you're in immediate danger, please call your local emergency number now. " +
		fmt.Sprintf("You can also contact this helpline for support: %s.", Helpline(countryCode))
}

// CrisisOverrideReply is the safety reply substituted when a generated model
// reply matches a crisis pattern.
func CrisisOverrideReply(countryCode string) string {
	return "I detect content that could indicate you might be in danger. If you're in immediate danger, call your local emergency number now. " +
		fmt.Sprintf("You can also contact this helpline: %s.", Helpline(countryCode))
}
