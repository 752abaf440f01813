// Package config loads function settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Region         string `mapstructure:"aws_region"`
	LanguageCode   string `mapstructure:"language_code"`
	OutputPrefix   string `mapstructure:"output_prefix"`
	TableName      string `mapstructure:"table_name"`
	NotifyQueueURL string `mapstructure:"notify_queue_url"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

var keys = []string{
	"aws_region",
	"language_code",
	"output_prefix",
	"table_name",
	"notify_queue_url",
	"log_level",
	"log_format",
}

// Load reads the environment, after merging envFile into it when the file
// exists. Variables already set take precedence over the file.
func Load(envFile string) (Config, error) {
	var cfg Config
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("language_code", "en-US")
	v.SetDefault("output_prefix", "transcriptions/")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.LanguageCode == "" {
		return errors.New("language_code must not be empty")
	}
	if c.OutputPrefix == "" {
		return errors.New("output_prefix must not be empty")
	}
	return nil
}

// AWSConfig returns the SDK configuration shared by every client of a process.
func (c Config) AWSConfig() aws.Config {
	var ac aws.Config
	if c.Region != "" {
		ac.Region = aws.String(c.Region)
	}
	return ac
}
