// Package usecase holds the per-request chat flow: validation, crisis
// screening, canned-reply mode, model resolution, prompt composition and the
// upstream invocation. Each request is handled in isolation; no state
// survives a request.
package usecase

import (
	"context"
	"errors"
	"strings"

	"empath-relay/internal/adapter"
	"empath-relay/internal/safety"
)

const roleBot = "bot"

// cannedReplyText is the fixed dev-mode reply returned when the canned-reply
// flag is enabled and the input is not a crisis message.
const cannedReplyText = "Hi — I'm here. I can't reach a hosted model right now. Would you like a short breathing exercise?"

// Generator produces a reply for a prompt against the hosted model.
type Generator interface {
	Generate(ctx context.Context, req adapter.Request) (string, error)
}

type ChatService struct {
	gen          Generator
	defaultModel string
	maxNewTokens int
	temperature  float64
	cannedReply  bool
}

type ChatInput struct {
	Message     string
	CountryCode string
	Model       string
}

type ChatOutput struct {
	Role   string
	Text   string
	Crisis bool
}

func NewChatService(gen Generator, defaultModel string, maxNewTokens int, temperature float64, cannedReply bool) (*ChatService, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	return &ChatService{
		gen:          gen,
		defaultModel: strings.TrimSpace(defaultModel),
		maxNewTokens: maxNewTokens,
		temperature:  temperature,
		cannedReply:  cannedReply,
	}, nil
}

// Chat runs the request state machine. Every branch is terminal: crisis
// pre-check, canned-reply mode, model resolution, upstream call, crisis
// post-check.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "message required", nil)
	}

	if safety.DetectCrisis(message) {
		return ChatOutput{Role: roleBot, Text: safety.CrisisReply(in.CountryCode), Crisis: true}, nil
	}

	if s.cannedReply {
		return ChatOutput{Role: roleBot, Text: cannedReplyText, Crisis: false}, nil
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.defaultModel
	}
	if model == "" {
		return ChatOutput{}, newError(ErrorNoModel, "no model configured", nil)
	}

	generated, err := s.gen.Generate(ctx, adapter.Request{
		Model:        model,
		Prompt:       ComposePrompt(message),
		SystemPrompt: SystemPrompt,
		UserText:     message,
		MaxNewTokens: s.maxNewTokens,
		Temperature:  s.temperature,
	})
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "upstream_inference_failed", err)
	}

	if safety.DetectCrisis(generated) {
		return ChatOutput{Role: roleBot, Text: safety.CrisisOverrideReply(in.CountryCode), Crisis: true}, nil
	}

	return ChatOutput{Role: roleBot, Text: strings.TrimSpace(generated), Crisis: false}, nil
}
