package main

import "github.com/shafreeck/configo"

// Config is the configuration of respcat
type Config struct {
	Decoder Decoder `cfg:"decoder"`
	Logger  Logger  `cfg:"logger"`
	Metrics Metrics `cfg:"metrics"`
}

// Decoder config is the config of the resp decoder
type Decoder struct {
	Chunk    int    `cfg:"chunk; 0; numeric; bytes fed to the decoder at a time, 0 for the whole input at once"`
	Encoding string `cfg:"encoding;;; text encoding bulk strings are transcoded from, empty for none"`
	Lenient  bool   `cfg:"lenient; false; boolean; true for parsing malformed numbers the way atoi does"`
}

// Logger config is the config of the zap logger
type Logger struct {
	Name  string `cfg:"name; respcat; ; the default logger name"`
	Level string `cfg:"level; warn; ; log level(debug, info, warn, error, panic, fatal)"`
}

// Metrics config is the config of the decoder metrics
type Metrics struct {
	Enable    bool   `cfg:"enable; false; boolean; true for printing decoder metrics once the input is exhausted"`
	Namespace string `cfg:"namespace; respfeed; ; prometheus namespace of the metrics"`
}

// LoadConfig loads the config from the given toml file. An empty path gives
// the default config.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}
	if path == "" {
		return config, configo.Unmarshal([]byte{}, config)
	}
	return config, configo.Load(path, config)
}
