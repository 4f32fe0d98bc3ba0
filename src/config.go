package src

import (
	"fmt"
	"os"

	"hybridchat/src/model"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      model.LogConfig      `envconfig:""`
	Graph    model.GraphConfig    `envconfig:""`
	Runner   model.RunnerConfig   `envconfig:""`
	Embed    model.EmbedConfig    `envconfig:""`
	Cache    model.CacheConfig    `envconfig:""`
	Pinecone model.PineconeConfig `envconfig:""`
	Chat     model.ChatConfig     `envconfig:""`
	Viz      model.VizConfig      `envconfig:""`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %v", err)
	}

	return &config, nil
}

// yamlConfig mirrors the tunables of config.yaml. Only fields present in the
// file override the environment defaults.
type yamlConfig struct {
	Chat struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		Template    string  `yaml:"template"`
	} `yaml:"chat"`
	Embed struct {
		Model       string `yaml:"model"`
		Concurrency int    `yaml:"concurrency"`
		BatchSize   int    `yaml:"batch_size"`
	} `yaml:"embed"`
	Graph struct {
		PoolSize int `yaml:"pool_size"`
	} `yaml:"graph"`
}

// ApplyYAML overlays tunables from a config.yaml file onto cfg. A missing
// file is not an error so the binary runs with env-only configuration.
func ApplyYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("error parsing YAML: %v", err)
	}

	if yc.Chat.Model != "" {
		cfg.Chat.Model = yc.Chat.Model
	}
	if yc.Chat.MaxTokens > 0 {
		cfg.Chat.MaxTokens = yc.Chat.MaxTokens
	}
	if yc.Chat.Temperature > 0 {
		cfg.Chat.Temperature = yc.Chat.Temperature
	}
	if yc.Chat.Template != "" {
		cfg.Chat.Template = yc.Chat.Template
	}
	if yc.Embed.Model != "" {
		cfg.Embed.Model = yc.Embed.Model
	}
	if yc.Embed.Concurrency > 0 {
		cfg.Embed.Concurrency = yc.Embed.Concurrency
	}
	if yc.Embed.BatchSize > 0 {
		cfg.Embed.BatchSize = yc.Embed.BatchSize
	}
	if yc.Graph.PoolSize > 0 {
		cfg.Graph.PoolSize = yc.Graph.PoolSize
	}

	return nil
}
