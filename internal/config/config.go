// Package config loads and persists tool settings from a YAML file under
// the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tome/internal/chunker"
)

// FileName is the config file name inside the data directory.
const FileName = "config.yaml"

// Config holds all tunable settings. Zero values fall back to defaults.
type Config struct {
	OllamaURL      string        `yaml:"ollama_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	RetrieveK      int           `yaml:"retrieve_k"`
	Chunking       chunker.Table `yaml:"chunking,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OllamaURL:      "http://localhost:11434",
		ChatModel:      "mistral",
		EmbeddingModel: "nomic-embed-text",
		RetrieveK:      4,
		Chunking:       chunker.DefaultTable(),
	}
}

// Load reads the config file from dir, filling missing fields with
// defaults. A missing file yields the defaults without error.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to dir, creating the directory if needed.
func (c Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ChunkSettings resolves the chunk size and overlap for a model, using
// the configured table with built-in fallbacks.
func (c Config) ChunkSettings(model string) chunker.Settings {
	if c.Chunking != nil {
		if s, ok := c.Chunking[model]; ok && s.Size > 0 {
			return s
		}
		if s, ok := c.Chunking["default"]; ok && s.Size > 0 {
			return s
		}
	}
	return chunker.SettingsFor(model)
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.OllamaURL == "" {
		c.OllamaURL = def.OllamaURL
	}
	if c.ChatModel == "" {
		c.ChatModel = def.ChatModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = def.EmbeddingModel
	}
	if c.RetrieveK <= 0 {
		c.RetrieveK = def.RetrieveK
	}
	if c.Chunking == nil {
		c.Chunking = def.Chunking
	}
}
