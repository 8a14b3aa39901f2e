package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Liturgy  Liturgy  `yaml:"liturgy"`
	Script   Script   `yaml:"script"`
	Images   Images   `yaml:"images"`
	TTS      TTS      `yaml:"tts"`
	Overlay  Overlay  `yaml:"overlay"`
	Captions Captions `yaml:"captions"`
	Render   Render   `yaml:"render"`
	Upload   Upload   `yaml:"upload"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
}

// Liturgy configures the readings sources: a JSON API queried by day/month/
// year, and an optional daily-readings RSS feed used as a fallback.
type Liturgy struct {
	APIBaseURL string `yaml:"api_base_url"`
	FeedURL    string `yaml:"feed_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Script configures the LLM used for script and metadata generation.
type Script struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaURL     string `yaml:"ollama_url"`
	CompatModel   string `yaml:"compat_model"`
	CompatBaseURL string `yaml:"compat_base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	MaxTokens     int    `yaml:"max_tokens"`
}

type Images struct {
	BaseURL     string `yaml:"base_url"`
	AspectRatio string `yaml:"aspect_ratio"`
	Count       int    `yaml:"count"`
	Model       string `yaml:"model"`
}

type TTS struct {
	Binary    string `yaml:"binary"`
	ModelPath string `yaml:"model_path"`
}

// Overlay holds the default overlay style offered when a production has not
// configured its own.
type Overlay struct {
	Font       string `yaml:"font"`
	FontSize   int    `yaml:"font_size"`
	PositionY  int    `yaml:"position_y"`
	Color      string `yaml:"color"`
	Visualizer bool   `yaml:"visualizer"`
}

type Captions struct {
	MaxWordsPerSegment int    `yaml:"max_words_per_segment"`
	Required           bool   `yaml:"required"`
	Font               string `yaml:"font"`
	FontSize           int    `yaml:"font_size"`
	Color              string `yaml:"color"`
}

type Render struct {
	FPS          int    `yaml:"fps"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

type Upload struct {
	Privacy           string `yaml:"privacy"`
	CategoryID        string `yaml:"category_id"`
	Language          string `yaml:"language"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for liturgycast.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "liturgycast")
}

// DataDir returns the XDG data directory for liturgycast.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "liturgycast")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/liturgycast/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'liturgycast init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Liturgy: Liturgy{
			APIBaseURL: "https://liturgia.up.railway.app/v2/",
			TimeoutSec: 15,
		},
		Script: Script{
			Provider:      "ollama",
			Model:         "qwen2.5:7b",
			OllamaURL:     "http://localhost:11434",
			CompatModel:   "llama-3.3-70b-versatile",
			CompatBaseURL: "https://api.groq.com/openai/v1",
			APIKeyEnv:     "GROQ_API_KEY",
			MaxTokens:     1024,
		},
		Images: Images{
			BaseURL:     "https://image.pollinations.ai",
			AspectRatio: "9:16",
			Count:       4,
			Model:       "flux",
		},
		TTS: TTS{
			Binary:    "piper",
			ModelPath: "piper_models/pt_BR-faber-medium.onnx",
		},
		Overlay: Overlay{
			Font:       "Arial",
			FontSize:   30,
			PositionY:  150,
			Color:      "#FFFFFF",
			Visualizer: true,
		},
		Captions: Captions{
			MaxWordsPerSegment: 3,
			Required:           true,
			Font:               "Arial",
			FontSize:           40,
			Color:              "#FFFF00",
		},
		Render: Render{
			FPS:          30,
			Width:        1080,
			Height:       1920,
			AudioBitrate: "192k",
		},
		Upload: Upload{
			Privacy:    "private",
			CategoryID: "22",
			Language:   "pt-BR",
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
