package adapter

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// extractPaths is the preference order for pulling the reply text out of a
// provider response: chat-style nested choices first, then flat fields.
var extractPaths = []string{
	"choices.0.message.content",
	"choices.0.text",
	"generated_text",
	"text",
	"content",
}

// ExtractText pulls the assistant reply out of an arbitrary provider
// response shape, falling back to the stringified whole response.
func ExtractText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}

	parsed := gjson.ParseBytes(raw)
	if parsed.Type == gjson.String {
		return strings.TrimSpace(parsed.String())
	}
	for _, path := range extractPaths {
		if v := parsed.Get(path); v.Exists() && v.Type == gjson.String {
			return strings.TrimSpace(v.String())
		}
	}
	return trimmed
}
