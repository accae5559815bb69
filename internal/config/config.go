// Package config reads the environment-driven configuration once at startup.
// Values are carried in an explicit Config struct handed to constructors;
// nothing reads the environment after process start.
package config

import (
	"os"
	"strconv"
	"strings"
)

const defaultModel = "meta-llama/Llama-3.1-8B-Instruct"

// Config is the read-only process configuration.
type Config struct {
	Token        string
	Provider     string
	DefaultModel string
	MaxNewTokens int
	Temperature  float64
	CannedReply  bool
	Debug        bool
	LogFile      string
	Host         string
	Port         int
}

// DebugView is the non-secret subset of the configuration exposed by
// GET /debug/env. The token itself never leaves the process.
type DebugView struct {
	TokenSet     bool   `json:"tokenSet"`
	Provider     string `json:"provider"`
	DefaultModel string `json:"defaultModel"`
	CannedReply  bool   `json:"cannedReply"`
	Debug        bool   `json:"debug"`
}

// FromEnv builds the configuration from environment variables, applying the
// documented defaults.
func FromEnv() Config {
	token := os.Getenv("HF_TOKEN")
	if token == "" {
		token = os.Getenv("HF_API_TOKEN")
	}
	model := os.Getenv("DEFAULT_MODEL")
	if model == "" {
		model = os.Getenv("PUBLIC_FALLBACK_MODEL")
	}
	if model == "" {
		model = defaultModel
	}
	return Config{
		Token:        token,
		Provider:     os.Getenv("HF_INFERENCE_PROVIDER"),
		DefaultModel: model,
		MaxNewTokens: envInt("MODEL_MAX_NEW_TOKENS", 512),
		Temperature:  envFloat("MODEL_TEMPERATURE", 0.2),
		CannedReply:  envBool("FALLBACK_REPLY", false),
		Debug:        envBool("DEBUG", true),
		LogFile:      envStr("LOGFILE", "server.log"),
		Host:         envStr("HOST", "0.0.0.0"),
		Port:         envInt("PORT", 5000),
	}
}

// View returns the non-secret subset served by the debug endpoint.
func (c Config) View() DebugView {
	return DebugView{
		TokenSet:     c.Token != "",
		Provider:     c.Provider,
		DefaultModel: c.DefaultModel,
		CannedReply:  c.CannedReply,
		Debug:        c.Debug,
	}
}

func envStr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}
