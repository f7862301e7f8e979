package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvConfigPath names the environment variable that overrides config discovery.
const EnvConfigPath = "HERMES_CONFIG"

// Load reads and parses configuration from a file, applying defaults for
// unset fields and validating the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, FileName)
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but %s not found: %s", FileName, absPath)
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg = applyConfigDefaults(cfg)
	cfg.SourceFile = absPath

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", absPath, err)
	}
	return cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority order: explicit path, $HERMES_CONFIG, hermes.yaml beside the
// executable, <UserConfigDir>/hermes/hermes.yaml. It returns "" with a nil
// error when no file exists anywhere; the caller then runs on Defaults().
func Discover(explicit, exePath string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s points at %s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	var candidates []string
	if exePath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), FileName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "hermes", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", c, err)
		}
	}
	return "", nil
}

// LoadOrDefault loads the discovered config, or returns Defaults() when
// discovery finds nothing.
func LoadOrDefault(explicit, exePath string) (*Config, error) {
	path, err := Discover(explicit, exePath)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

// LogFilePath returns the log file location, defaulting to hermes.log
// beside the executable.
func (c *Config) LogFilePath(exePath string) string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return filepath.Join(filepath.Dir(exePath), DefaultLogFile)
}

// StorePath returns the SQLite store location, defaulting to a file under
// the user's config directory.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "hermes", "registry.db"), nil
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}
	return &cfg, nil
}

func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Namespace == "" {
		cfg.Namespace = defaults.Namespace
	}
	if cfg.DebugArgument == "" {
		cfg.DebugArgument = defaults.DebugArgument
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.MaxSize == 0 {
		cfg.Log.MaxSize = defaults.Log.MaxSize
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if strings.Trim(cfg.Namespace, `\/ `) == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if envVarPattern.MatchString(cfg.Namespace) {
		return fmt.Errorf("namespace: environment variable ${%s} is not set",
			envVarPattern.FindStringSubmatch(cfg.Namespace)[1])
	}

	switch cfg.DebugArgument {
	case "--debug", "--verbose", "-v":
	default:
		return fmt.Errorf("debug_argument must be one of: --debug, --verbose, -v (got %q)", cfg.DebugArgument)
	}

	validLogLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of: trace, debug, info, warn, error (got %q)", cfg.Log.Level)
	}
	if cfg.Log.MaxSize <= 0 {
		return fmt.Errorf("log.max_size must be positive")
	}
	for field, v := range map[string]string{"log.path": cfg.Log.Path, "store.path": cfg.Store.Path} {
		if envVarPattern.MatchString(v) {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, envVarPattern.FindStringSubmatch(v)[1])
		}
	}

	switch cfg.Store.Backend {
	case "", "registry", "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend must be one of: registry, sqlite, memory (got %q)", cfg.Store.Backend)
	}
	return nil
}
