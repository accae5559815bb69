package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// invocation adapter and the hosted-inference client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
