package usecase

import "strings"

// Guidance strings mapped from upstream error text. Substring matching on
// provider errors is a best-effort heuristic; the matches are only expanded
// with evidence from real provider error formats.
const (
	guidanceModelNotFound = "Model not found at the provider. Check that the model id is correct and that the provider hosts it."
	guidanceUnauthorized  = "Token unauthorized for model — ensure the API token has access or the model is public at that provider."
	guidanceChatOnly      = "This provider/model expects conversational/chat requests — ensure the provider client supports chat (this server attempted conversational fallback)."
	guidanceGeneric       = "Check provider, token, and model id. If using a private/gated model, request access or use a token with access."
)

// ClassifyUpstreamError maps an upstream failure message to user-facing
// guidance strings for the 502 response body.
func ClassifyUpstreamError(detail string) []string {
	lower := strings.ToLower(detail)

	var guidance []string
	if strings.Contains(detail, "Not Found") || strings.Contains(detail, "404") {
		guidance = append(guidance, guidanceModelNotFound)
	}
	if strings.Contains(detail, "403") || strings.Contains(detail, "Unauthorized") || strings.Contains(lower, "permission") {
		guidance = append(guidance, guidanceUnauthorized)
	}
	if strings.Contains(lower, "conversational") {
		guidance = append(guidance, guidanceChatOnly)
	}
	if len(guidance) == 0 {
		guidance = append(guidance, guidanceGeneric)
	}
	return guidance
}
