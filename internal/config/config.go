// Package config loads the orchestration core's configuration from
// environment variables, per §6.3 of the specification.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the orchestration core.
type Config struct {
	Port               int
	Version            string
	ProviderEndpoints  map[string]string
	MaxRounds          int
	ToolCallTimeoutMs  int
	ReasoningTimeoutMs int
	TurnTimeoutMs      int
	CacheTTLSec        int
	DevMode            bool
	BypassToken        bool
	TenantID           string
	Audience           string
	ReasoningAPIKey    string
	ReasoningBaseURL   string
	ReasoningModel     string
	SystemPrompt       string
	Telemetry          TelemetryConfig
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

const defaultSystemPrompt = "You are a helpful assistant with access to a set of tools. Use them when they help answer the user's request."

// ErrConfig is a fatal configuration error detected at startup.
type ErrConfig struct {
	Reason string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Load reads configuration from environment variables with sensible
// defaults, returning an ErrConfig if PROVIDER_ENDPOINTS is present but
// malformed, or if a required variable is missing.
func Load() (*Config, error) {
	endpoints, err := envJSONStringMap("PROVIDER_ENDPOINTS")
	if err != nil {
		return nil, &ErrConfig{Reason: err.Error()}
	}

	cfg := &Config{
		Port:               envInt("PORT", 8080),
		Version:            envStr("VERSION", "0.1.0"),
		ProviderEndpoints:  endpoints,
		MaxRounds:          envInt("MAX_ROUNDS", 5),
		ToolCallTimeoutMs:  envInt("TOOL_CALL_TIMEOUT_MS", 30000),
		ReasoningTimeoutMs: envInt("REASONING_CALL_TIMEOUT_MS", 60000),
		TurnTimeoutMs:      envInt("TURN_TIMEOUT_MS", 180000),
		CacheTTLSec:        envInt("CACHE_TTL_SEC", 300),
		DevMode:            envBool("DEV_MODE", false),
		BypassToken:        envBool("BYPASS_TOKEN", false),
		TenantID:           envStr("TENANT_ID", ""),
		Audience:           envStr("AUDIENCE", ""),
		ReasoningAPIKey:    envStr("REASONING_API_KEY", ""),
		ReasoningBaseURL:   envStr("REASONING_BASE_URL", ""),
		ReasoningModel:     envStr("REASONING_MODEL", "gpt-4o-mini"),
		SystemPrompt:       envStr("SYSTEM_PROMPT", defaultSystemPrompt),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "toolcore"),
		},
	}

	if !cfg.DevMode && cfg.TenantID == "" && !cfg.BypassToken {
		return nil, &ErrConfig{Reason: "TENANT_ID is required unless DEV_MODE or BYPASS_TOKEN is set"}
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envJSONStringMap parses a JSON object env var into a string map. An unset
// variable yields an empty map and no error; a malformed one is an error.
func envJSONStringMap(key string) (map[string]string, error) {
	v := os.Getenv(key)
	if v == "" {
		return map[string]string{}, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON object: %w", key, err)
	}
	return out, nil
}
