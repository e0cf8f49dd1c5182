// Package config loads and validates gateway startup configuration.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the fully-resolved, validated startup configuration.
type AppConfig struct {
	ServiceName string `mapstructure:"service_name" validate:"required"`
	Host        string `mapstructure:"host" validate:"required"`
	Port        int    `mapstructure:"port" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required"`
	LogFilePath string `mapstructure:"log_file_path"`

	AuthToken      string `mapstructure:"auth_token" validate:"required"`
	ICEServersJSON string `mapstructure:"ice_servers_json"`
	TLSCertPath    string `mapstructure:"tls_cert_path"`
	TLSKeyPath     string `mapstructure:"tls_key_path"`

	OllamaURL           string `mapstructure:"ollama_url"`
	OllamaModel         string `mapstructure:"ollama_model"`
	OllamaFallbackModel string `mapstructure:"ollama_fallback_model"`
	OpenAIAPIKey        string `mapstructure:"openai_api_key"`
	AnthropicAPIKey     string `mapstructure:"anthropic_api_key"`

	BraveAPIKey  string `mapstructure:"brave_api_key"`
	TavilyAPIKey string `mapstructure:"tavily_api_key"`

	STTServerURL string `mapstructure:"stt_server_url"`
	TTSServerURL string `mapstructure:"tts_server_url"`

	MaxToolCallsPerTurn       int     `mapstructure:"max_tool_calls_per_turn" validate:"required"`
	MaxHistoryMessages        int     `mapstructure:"max_history_messages" validate:"required"`
	TranscribeIntervalSeconds float64 `mapstructure:"transcribe_interval_seconds" validate:"required"`

	DefaultVoiceID      string `mapstructure:"default_voice_id"`
	DefaultLLMProvider  string `mapstructure:"default_llm_provider"`
	DefaultLLMModel     string `mapstructure:"default_llm_model"`
}

// InitConfig wires up a viper instance the way the rest of this stack's
// services do: "__" nested-key delimiter, .env config type, automatic env
// fallback, ENV_PATH override for the config file location.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("env path %v", path)
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("reading configuration from environment variables only: %v", err)
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "voice-gateway")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8088)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("OLLAMA_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "")
	v.SetDefault("OLLAMA_FALLBACK_MODEL", "")

	v.SetDefault("MAX_TOOL_CALLS_PER_TURN", 5)
	v.SetDefault("MAX_HISTORY_MESSAGES", 20)
	v.SetDefault("TRANSCRIBE_INTERVAL_SECONDS", 5.0)

	v.SetDefault("DEFAULT_VOICE_ID", "sine-440")
	v.SetDefault("DEFAULT_LLM_PROVIDER", "ollama")
}

// GetApplicationConfig unmarshals and validates the AppConfig. A validation
// failure here is fatal at startup (error handling kind 8 in SPEC_FULL.md).
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
