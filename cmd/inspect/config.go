package main

import "github.com/kelseyhightower/envconfig"

// Config reuses the bot's storage paths. The bot may keep running, both stores are opened read-only.
type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	BlugeFilepath  string `envconfig:"BLUGE_FILEPATH" required:"true"`
	// INSPECT_COLOURS toggles coloured statuses
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
