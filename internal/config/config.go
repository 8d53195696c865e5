// Package config provides configuration management for the assistant.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup
// and passed into component constructors; nothing reads viper afterwards.
type Config struct {
	Audio        AudioConfig        `mapstructure:"audio"`
	STT          STTConfig          `mapstructure:"stt"`
	TTS          TTSConfig          `mapstructure:"tts"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding"`
	Memory       MemoryConfig       `mapstructure:"memory"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Tools        ToolsConfig        `mapstructure:"tools"`
	Control      ControlConfig      `mapstructure:"control"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// AudioConfig configures audio capture and playback
type AudioConfig struct {
	InputDevice   string        `mapstructure:"input_device"`
	SampleRate    int           `mapstructure:"sample_rate"`
	FrameSize     int           `mapstructure:"frame_size"`
	VADThreshold  float64       `mapstructure:"vad_threshold"`
	VADSilenceDur time.Duration `mapstructure:"vad_silence_duration"`
	MaxUtterance  time.Duration `mapstructure:"max_utterance"`
	OutputVolume  int           `mapstructure:"output_volume"` // 0-100
}

// STTConfig configures speech-to-text
type STTConfig struct {
	Provider string        `mapstructure:"provider"` // whisper-server
	Endpoint string        `mapstructure:"endpoint"` // base URL, /audio/transcriptions is appended
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig configures text-to-speech
type TTSConfig struct {
	Provider string        `mapstructure:"provider"` // openai-compatible
	Endpoint string        `mapstructure:"endpoint"` // base URL, /audio/speech is appended
	Model    string        `mapstructure:"model"`
	VoiceID  string        `mapstructure:"voice_id"`
	Speed    float64       `mapstructure:"speed"`
	Format   string        `mapstructure:"format"` // wav or mp3
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the response generator
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"` // OpenAI-compatible server
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig configures the embedding service
type EmbeddingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MemoryConfig configures the semantic memory store
type MemoryConfig struct {
	SnapshotPath     string  `mapstructure:"snapshot_path"`
	Capacity         int     `mapstructure:"capacity"`
	RetrievalTopK    int     `mapstructure:"retrieval_top_k"`
	EvictionPolicy   string  `mapstructure:"eviction_policy"` // only "fifo" is recognized
	MinSimilarity    float64 `mapstructure:"min_similarity"`
	SnapshotSchedule string  `mapstructure:"snapshot_schedule"` // cron spec, empty disables
	StoreExchanges   bool    `mapstructure:"store_exchanges"`   // persist turns under "conversation"
}

// ConversationConfig configures the rolling turn history
type ConversationConfig struct {
	MaxTurns          int           `mapstructure:"max_turns"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
}

// ToolsConfig configures tool execution and the security gate
type ToolsConfig struct {
	ExecTimeout         time.Duration `mapstructure:"exec_timeout"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	RephraseResults     bool          `mapstructure:"rephrase_results"` // feed tool output through the LLM
	ExecWhitelist       []string      `mapstructure:"exec_whitelist"`
	TelegramToken       string        `mapstructure:"telegram_token"`
	TelegramChatID      int64         `mapstructure:"telegram_chat_id"`
	SearchEndpoint      string        `mapstructure:"search_endpoint"` // empty uses the public DuckDuckGo API
}

// ControlConfig configures the websocket control channel
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// OrchestratorConfig configures the turn state machine
type OrchestratorConfig struct {
	PushToTalk     bool   `mapstructure:"push_to_talk"`
	WakeWord       string `mapstructure:"wake_word"` // empty = always armed
	WelcomeLine    string `mapstructure:"welcome_line"`
	GoodbyeLine    string `mapstructure:"goodbye_line"`
	ShutdownPhrase string `mapstructure:"shutdown_phrase"`
}

// LoggingConfig configures logging output
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxHistory int    `mapstructure:"max_history"`
	Console    bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".cortexassist")

	return &Config{
		Audio: AudioConfig{
			InputDevice:   "",
			SampleRate:    16000,
			FrameSize:     320, // 20ms at 16kHz
			VADThreshold:  0.015,
			VADSilenceDur: 600 * time.Millisecond,
			MaxUtterance:  15 * time.Second,
			OutputVolume:  100,
		},
		STT: STTConfig{
			Provider: "whisper-server",
			Endpoint: "http://127.0.0.1:8178/v1",
			Model:    "whisper-1",
			Language: "en",
			Timeout:  30 * time.Second,
		},
		TTS: TTSConfig{
			Provider: "openai-compatible",
			Endpoint: "http://127.0.0.1:8880/v1",
			Model:    "tts-1",
			VoiceID:  "nova",
			Speed:    1.0,
			Format:   "wav",
			Timeout:  30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "http://127.0.0.1:8080/v1",
			APIKey:      "",
			Model:       "local",
			MaxTokens:   256,
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://127.0.0.1:8080/v1",
			APIKey:    "",
			Model:     "all-minilm",
			Dimension: 384,
			Timeout:   15 * time.Second,
		},
		Memory: MemoryConfig{
			SnapshotPath:     filepath.Join(dataDir, "memory", "memory.json"),
			Capacity:         10000,
			RetrievalTopK:    5,
			EvictionPolicy:   "fifo",
			MinSimilarity:    0.5,
			SnapshotSchedule: "@every 5m",
			StoreExchanges:   true,
		},
		Conversation: ConversationConfig{
			MaxTurns:          20,
			InactivityTimeout: 5 * time.Minute,
		},
		Tools: ToolsConfig{
			ExecTimeout:         30 * time.Second,
			ConfirmationTimeout: 30 * time.Second,
			RephraseResults:     false,
			ExecWhitelist:       []string{"uptime", "date"},
		},
		Control: ControlConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8765",
		},
		Orchestrator: OrchestratorConfig{
			PushToTalk:     false,
			WakeWord:       "",
			WelcomeLine:    "Hello, I'm listening.",
			GoodbyeLine:    "Goodbye.",
			ShutdownPhrase: "shut up",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        filepath.Join(dataDir, "logs"),
			MaxHistory: 1000,
			Console:    true,
		},
	}
}

// Load reads configuration from file and environment
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return cfg, err
		}
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return cfg, err
		}

		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CORTEXASSIST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet, materialize the defaults
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("audio", cfg.Audio)
	v.Set("stt", cfg.STT)
	v.Set("tts", cfg.TTS)
	v.Set("llm", cfg.LLM)
	v.Set("embedding", cfg.Embedding)
	v.Set("memory", cfg.Memory)
	v.Set("conversation", cfg.Conversation)
	v.Set("tools", cfg.Tools)
	v.Set("control", cfg.Control)
	v.Set("orchestrator", cfg.Orchestrator)
	v.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return v.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexassist"), nil
}
