package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the report-writer runtime configuration.
type Config struct {
	Report struct {
		Outline   string `yaml:"outline"`
		DataRoot  string `yaml:"data_root"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`
	AI struct {
		Model         string `yaml:"model"`
		ThinkingLevel string `yaml:"thinking_level"`
		APIKey        string `yaml:"api_key"`
	} `yaml:"ai"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig reads the YAML config, after loading .env if present, and lets
// environment variables override the file. A missing config file yields
// defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.AI.ThinkingLevel == "" {
		cfg.AI.ThinkingLevel = "medium"
	}

	if apiKey := os.Getenv("REPORTWRITER_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if model := os.Getenv("REPORTWRITER_MODEL"); model != "" {
		cfg.AI.Model = model
	}

	return &cfg, nil
}
