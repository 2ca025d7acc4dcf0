package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration file. Every field is optional;
// flags and action inputs take precedence over it.
type File struct {
	Repository    string  `yaml:"repository"`
	Severity      string  `yaml:"severity"`
	AllowNotFound *bool   `yaml:"allow_not_found"`
	FailAction    *bool   `yaml:"fail_action"`
	APIURL        string  `yaml:"api_url"`
	GraphQLURL    string  `yaml:"graphql_url"`
	Format        string  `yaml:"format"`
	SARIF         string  `yaml:"sarif"`
	MetricsFile   string  `yaml:"metrics_file"`
	SummaryFile   string  `yaml:"summary_file"`
	Log           LogFile `yaml:"log"`
}

// LogFile holds logging settings from the config file
type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadFile reads a File from a YAML document
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &f, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func boolString(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}
