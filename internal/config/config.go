package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "10s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Settings is the bot's file-backed configuration. Every field has a usable
// default so the bot can run from the token alone.
type Settings struct {
	BotToken       string   `yaml:"botToken"`
	OutputDir      string   `yaml:"outputDir"`
	DefaultQuality string   `yaml:"defaultQuality"`
	UpdateInterval Duration `yaml:"updateInterval"`
	Workers        int      `yaml:"workers"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
	AllowedChats   []int64  `yaml:"allowedChats"`
	FFmpegPath     string   `yaml:"ffmpegPath"`
	FFprobePath    string   `yaml:"ffprobePath"`
	ProxyURL       string   `yaml:"proxyUrl"`
}

func Default() Settings {
	return Settings{
		OutputDir:      "downloads",
		DefaultQuality: "medium",
		UpdateInterval: Duration(5 * time.Second),
		Workers:        2,
		MaxUploadBytes: 2000 * 1024 * 1024,
	}
}

// Load reads settings from a YAML file and applies environment overrides. A
// missing file is not an error; defaults plus environment are used.
func Load(path string) (Settings, error) {
	settings := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return settings, fmt.Errorf("error reading config file: %v", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &settings); err != nil {
				return settings, fmt.Errorf("error parsing config file: %v", err)
			}
		}
	}
	applyEnv(&settings)
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.UpdateInterval <= 0 {
		settings.UpdateInterval = Duration(5 * time.Second)
	}
	return settings, nil
}

func applyEnv(settings *Settings) {
	if token := os.Getenv("DELTA_BOT_TOKEN"); token != "" {
		settings.BotToken = token
	}
	if dir := os.Getenv("DELTA_OUTPUT_DIR"); dir != "" {
		settings.OutputDir = dir
	}
	if proxy := os.Getenv("DELTA_PROXY_URL"); proxy != "" {
		settings.ProxyURL = proxy
	}
}

// Allowed reports whether a chat may use the bot. An empty allowlist means
// every chat is allowed.
func (s *Settings) Allowed(chatID int64) bool {
	if len(s.AllowedChats) == 0 {
		return true
	}
	for _, id := range s.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
