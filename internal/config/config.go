// Package config loads and migrates the agent's TOML configuration file:
// one sub-struct per table, a defaults() constructor, and a version-aware
// template merge that preserves user customization and comments.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const version = "0.3.0"

//go:embed config-template.toml
var templateTOML string

// Config mirrors the agent's TOML sections: logging, llm, llm_fast,
// visual, vlm, bot, game, plus the optional api and threat_detection
// tables.
type Config struct {
	Inner           InnerConfig            `toml:"inner"`
	Logging         LoggingConfig          `toml:"logging"`
	LLM             LLMConfig              `toml:"llm"`
	LLMFast         LLMConfig              `toml:"llm_fast"`
	Visual          VisualConfig           `toml:"visual"`
	VLM             LLMConfig              `toml:"vlm"`
	Bot             BotConfig              `toml:"bot"`
	Game            GameConfig             `toml:"game"`
	API             *APIConfig             `toml:"api,omitempty"`
	ThreatDetection *ThreatDetectionConfig `toml:"threat_detection,omitempty"`

	BootTime int64 `toml:"-"` // set at load time, not from the file
}

// InnerConfig carries bookkeeping not meant for users to hand-edit.
type InnerConfig struct {
	Version string `toml:"version"`
}

// LoggingConfig selects zap's verbosity; Format chooses between
// zap.NewProductionConfig ("json") and zap.NewDevelopmentConfig
// ("console").
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LLMConfig is shared by the llm, llm_fast, and vlm tables: a model name
// plus the usual completion knobs. Vision calls reuse this shape since
// the only difference is which endpoint it is pointed at.
type LLMConfig struct {
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// VisualConfig toggles whether the vision model is consulted at all.
type VisualConfig struct {
	Enable bool `toml:"enable"`
}

// BotConfig names the bridge-side player and the bot's in-chat display
// name.
type BotConfig struct {
	PlayerName string `toml:"player_name"`
	BotName    string `toml:"bot_name"`
}

// GameConfig carries the high-level goal text surfaced to the planner.
type GameConfig struct {
	Goal string `toml:"goal"`
}

// APIConfig is the optional HTTP/WebSocket bind address for the agent's
// own server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ThreatDetectionConfig mirrors the combat handler's Config (spec'd
// range/timeout/interval/attempts), expressed in the TOML's native units
// (seconds, not time.Duration) and converted at wiring time.
type ThreatDetectionConfig struct {
	Range             float64 `toml:"range"`
	MinDistance       float64 `toml:"min_distance"`
	TimeoutSeconds    float64 `toml:"timeout_seconds"`
	AttackIntervalSec float64 `toml:"attack_interval_seconds"`
	MaxAttackAttempts int     `toml:"max_attack_attempts"`
	Enabled           bool    `toml:"enabled"`
}

func defaults() *Config {
	return &Config{
		Inner:   InnerConfig{Version: version},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		LLMFast: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Visual: VisualConfig{Enable: false},
		VLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Bot:  BotConfig{PlayerName: "Mai", BotName: "Mai"},
		Game: GameConfig{Goal: "establish a camp, mine 16 diamonds, and store them, using suitable steps"},
	}
}

// Load reads path, unmarshaling onto the defaults so any table or key the
// file omits keeps its default value, and stamps a boot timestamp. A
// missing file is not created here — callers that want auto-creation
// should check os.IsNotExist and call WriteDefault first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := defaults()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.BootTime = time.Now().Unix()
	return cfg, nil
}

// WriteDefault writes the embedded template verbatim to path, creating
// its directory if needed. Used the first time the agent runs with no
// config file present.
func WriteDefault(path string) error {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(templateTOML), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}
