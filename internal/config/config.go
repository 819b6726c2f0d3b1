package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings are the resolved options a console session runs with.
type Settings struct {
	FilePath   string
	SchemaPath string // empty selects the built-in schema
	LogLevel   string
}

const (
	DefaultFilePath = "file.json"
	DefaultLogLevel = "warn"
)

// Environment variables overriding the global config file.
const (
	EnvFilePath   = "HBNB_FILE_PATH"
	EnvSchemaPath = "HBNB_SCHEMA_PATH"
	EnvLogLevel   = "HBNB_LOG_LEVEL"
)

// ValidLogLevels lists the supported log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Resolve merges settings from, in increasing precedence, the defaults,
// the global config file, the environment and flags. Empty fields in
// flags are treated as unset.
func Resolve(flags Settings) (*Settings, error) {
	s := &Settings{
		FilePath: DefaultFilePath,
		LogLevel: DefaultLogLevel,
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	s.merge(Settings{
		FilePath:   cfg.FilePath,
		SchemaPath: cfg.SchemaPath,
		LogLevel:   cfg.LogLevel,
	})
	s.merge(Settings{
		FilePath:   os.Getenv(EnvFilePath),
		SchemaPath: os.Getenv(EnvSchemaPath),
		LogLevel:   os.Getenv(EnvLogLevel),
	})
	s.merge(flags)

	s.FilePath = ExpandPath(s.FilePath)
	s.SchemaPath = ExpandPath(s.SchemaPath)
	s.LogLevel = strings.ToLower(s.LogLevel)
	if err := ValidateLogLevel(s.LogLevel); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) merge(o Settings) {
	if o.FilePath != "" {
		s.FilePath = o.FilePath
	}
	if o.SchemaPath != "" {
		s.SchemaPath = o.SchemaPath
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
}

// ValidateLogLevel checks that the level value is valid.
func ValidateLogLevel(level string) error {
	for _, valid := range ValidLogLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log_level: %s (valid: %v)", level, ValidLogLevels)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
