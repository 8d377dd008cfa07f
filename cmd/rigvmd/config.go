package main

import (
	"github.com/BurntSushi/toml"
)

// Config is rigvmd's on-disk server configuration: listener address and
// log level, loaded from TOML.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":8088",
		LogLevel:   "info",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
