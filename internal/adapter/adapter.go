// Package adapter normalizes calls against a hosted-inference client whose
// method surface varies by provider and version. Instead of probing the
// client at runtime, it walks an explicit ordered chain of invocation
// strategies and returns the first success.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"empath-relay/internal/domain"
)

const (
	methodTextGeneration = "text_generation"
	methodChat           = "chat"
	methodConversational = "conversational"
	methodChatCompletion = "chat_completion"
)

// chatMethodNames are the known conversational method names, in the order
// they are attempted.
var chatMethodNames = []string{methodChat, methodConversational, methodChatCompletion}

// ErrBadArgument marks a failure caused by an argument-name mismatch rather
// than a provider-side rejection. Callers wrap it so the adapter can retry
// with the alternate field name.
var ErrBadArgument = errors.New("argument mismatch")

// Args carries either named fields or positional values for one invocation.
type Args struct {
	Named      map[string]any
	Positional []any
}

// Caller is the minimal surface the adapter needs from a provider client.
type Caller interface {
	// Supports reports whether the client can attempt the named method.
	Supports(method string) bool
	// Invoke performs the named call and returns the raw response body.
	Invoke(ctx context.Context, method string, args Args) (json.RawMessage, error)
}

// FieldReporter is an optional capability: a caller that knows which named
// fields a method accepts lets the adapter send exactly that subset.
type FieldReporter interface {
	AcceptedFields(method string) []string
}

// MethodLister is an optional capability: a caller that can enumerate its
// method names allows a last-resort scan for chat-like methods.
type MethodLister interface {
	Methods() []string
}

// Request carries one generation request through the fallback chain.
type Request struct {
	Model        string
	Prompt       string
	SystemPrompt string
	UserText     string
	MaxNewTokens int
	Temperature  float64
}

// Attempt records one invocation try, for logging and error aggregation.
type Attempt struct {
	Method  string
	Shape   string
	Outcome string
}

// Error is the aggregated adapter failure: every strategy in the chain was
// tried and none produced a usable reply.
type Error struct {
	Attempts []Attempt
	Last     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("adapter: all invocation attempts failed (last: %v)", e.Last)
}

func (e *Error) Unwrap() error {
	return e.Last
}

// Adapter runs the invocation fallback chain against a Caller.
type Adapter struct {
	caller Caller
	log    *logrus.Logger
}

// New creates an Adapter. A nil logger disables attempt logging.
func New(caller Caller, log *logrus.Logger) (*Adapter, error) {
	if caller == nil {
		return nil, errors.New("adapter: caller must not be nil")
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Adapter{caller: caller, log: log}, nil
}

// Generate attempts plain text generation first and falls back to the
// conversational strategy chain when the provider reports that the model
// only supports chat-style requests. It returns the extracted reply text.
func (a *Adapter) Generate(ctx context.Context, req Request) (string, error) {
	attempts := []Attempt{}

	text, err := a.tryTextGeneration(ctx, req, &attempts)
	if err == nil {
		return text, nil
	}

	if !isConversationalMismatch(err) {
		return "", fmt.Errorf("adapter: text generation failed: %w", err)
	}

	a.log.WithField("model", req.Model).Info("provider expects conversational requests, trying chat methods")
	text, chatErr := a.tryChatMethods(ctx, req, &attempts)
	if chatErr == nil {
		return text, nil
	}
	return "", &Error{Attempts: attempts, Last: fmt.Errorf("conversational fallback failed: %w (text generation error was: %v)", chatErr, err)}
}

// tryTextGeneration performs the plain text-generation call, retrying once
// with the alternate prompt field name on an argument mismatch.
func (a *Adapter) tryTextGeneration(ctx context.Context, req Request, attempts *[]Attempt) (string, error) {
	named := map[string]any{
		"model":          req.Model,
		"inputs":         req.Prompt,
		"max_new_tokens": req.MaxNewTokens,
		"temperature":    req.Temperature,
	}
	raw, err := a.invoke(ctx, methodTextGeneration, Args{Named: named}, "named(inputs)", attempts)
	if err != nil && errors.Is(err, ErrBadArgument) {
		delete(named, "inputs")
		named["prompt"] = req.Prompt
		raw, err = a.invoke(ctx, methodTextGeneration, Args{Named: named}, "named(prompt)", attempts)
	}
	if err != nil {
		return "", err
	}
	text := ExtractText(raw)
	if text == "" {
		return "", fmt.Errorf("text generation returned empty response: %s", raw)
	}
	return text, nil
}

// tryChatMethods walks the ordered chat candidates, then falls back to
// scanning the caller's own method names for chat-like entries.
func (a *Adapter) tryChatMethods(ctx context.Context, req Request, attempts *[]Attempt) (string, error) {
	messages := []domain.ChatMessage{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.UserText},
	}
	messagesPayload := map[string]any{
		"model":          req.Model,
		"messages":       messages,
		"max_new_tokens": req.MaxNewTokens,
		"temperature":    req.Temperature,
	}
	singleInputPayload := map[string]any{
		"model":          req.Model,
		"inputs":         req.UserText,
		"system_prompt":  req.SystemPrompt,
		"max_new_tokens": req.MaxNewTokens,
		"temperature":    req.Temperature,
	}
	positional := []any{req.Model, messages}

	candidates := []struct {
		method  string
		payload map[string]any
	}{
		{methodChat, messagesPayload},
		{methodConversational, messagesPayload},
		{methodChatCompletion, messagesPayload},
		{methodChat, singleInputPayload},
	}

	var lastErr error
	for _, cand := range candidates {
		if !a.caller.Supports(cand.method) {
			continue
		}
		text, err := a.tryCandidate(ctx, cand.method, cand.payload, positional, attempts)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	// Last resort: the caller may expose method names the ordered list does
	// not know about, e.g. differently cased variants.
	if lister, ok := a.caller.(MethodLister); ok {
		for _, name := range lister.Methods() {
			if !isChatMethodName(name) {
				continue
			}
			text, err := a.tryCandidate(ctx, name, messagesPayload, positional, attempts)
			if err == nil {
				return text, nil
			}
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no conversational method available on the provider client")
	}
	return "", lastErr
}

// tryCandidate attempts one chat method with up to three payload shapes:
// the subset of fields the method accepts, then positional arguments, then
// the full named payload.
func (a *Adapter) tryCandidate(ctx context.Context, method string, payload map[string]any, positional []any, attempts *[]Attempt) (string, error) {
	var lastErr error

	if reporter, ok := a.caller.(FieldReporter); ok {
		if subset := filterPayload(payload, reporter.AcceptedFields(method)); len(subset) > 0 {
			raw, err := a.invoke(ctx, method, Args{Named: subset}, "named-subset", attempts)
			if err == nil {
				return a.extractNonEmpty(raw)
			}
			lastErr = err
		}
	}

	raw, err := a.invoke(ctx, method, Args{Positional: positional}, "positional", attempts)
	if err == nil {
		return a.extractNonEmpty(raw)
	}
	lastErr = err

	raw, err = a.invoke(ctx, method, Args{Named: payload}, "full-payload", attempts)
	if err == nil {
		return a.extractNonEmpty(raw)
	}
	return "", errors.Join(lastErr, err)
}

func (a *Adapter) extractNonEmpty(raw json.RawMessage) (string, error) {
	text := ExtractText(raw)
	if text == "" {
		return "", fmt.Errorf("conversational call returned empty response: %s", raw)
	}
	return text, nil
}

func (a *Adapter) invoke(ctx context.Context, method string, args Args, shape string, attempts *[]Attempt) (json.RawMessage, error) {
	raw, err := a.caller.Invoke(ctx, method, args)
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
	}
	*attempts = append(*attempts, Attempt{Method: method, Shape: shape, Outcome: outcome})
	a.log.WithFields(logrus.Fields{
		"method":  method,
		"shape":   shape,
		"outcome": outcome,
	}).Debug("invocation attempt")
	return raw, err
}

// filterPayload returns the subset of payload whose keys appear in fields,
// preserving nothing else.
func filterPayload(payload map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	subset := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := payload[f]; ok {
			subset[f] = v
		}
	}
	return subset
}

// isConversationalMismatch classifies a text-generation failure as "the
// model only supports chat-style requests". This is a best-effort substring
// heuristic on provider error text.
func isConversationalMismatch(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conversational") ||
		strings.Contains(msg, "supported task")
}

func isChatMethodName(name string) bool {
	lower := strings.ToLower(name)
	for _, known := range chatMethodNames {
		if lower == known {
			return true
		}
	}
	return false
}
