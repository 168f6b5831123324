package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	AppName  string

	CORSAllowedOrigins []string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	BedrockModelID string

	KnowledgeBaseID      string
	KnowledgeBaseEnabled bool
	KBMaxResults         int

	// Generation parameters are fixed per process, not per request.
	MaxTokens   int32
	Temperature float32
	TopP        float32

	// MaxConversationHistory caps how many prior turns are forwarded to the model.
	MaxConversationHistory int

	// StreamChunkSize is the fragment width used when simulating streaming
	// for the retrieve-and-generate path.
	StreamChunkSize int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppName:  getEnv("APP_NAME", "Summoners Reunion AI Agent"),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8000",
			"http://localhost:8080",
		}),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", "us.anthropic.claude-3-5-sonnet-20241022-v2:0"),

		KnowledgeBaseID:      getEnv("KNOWLEDGE_BASE_ID", ""),
		KnowledgeBaseEnabled: getEnvAsBool("KNOWLEDGE_BASE_ENABLED", false),
		KBMaxResults:         getEnvAsInt("KB_MAX_RESULTS", 5),

		MaxTokens:   int32(getEnvAsInt("MAX_TOKENS", 4096)),
		Temperature: getEnvAsFloat32("TEMPERATURE", 1.0),
		TopP:        getEnvAsFloat32("TOP_P", 0.999),

		MaxConversationHistory: getEnvAsInt("MAX_CONVERSATION_HISTORY", 50),
		StreamChunkSize:        getEnvAsInt("STREAM_CHUNK_SIZE", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

// getEnvAsSlice parses a comma-separated environment variable.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
