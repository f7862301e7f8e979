package config

// Config represents the complete hermes configuration.
type Config struct {
	// Namespace is the configuration subtree under Software\ holding
	// per-protocol host tables.
	Namespace string `yaml:"namespace"`
	// DebugArgument is baked into the open command by --register-with-debugging.
	DebugArgument string      `yaml:"debug_argument"`
	Log           LogConfig   `yaml:"log"`
	Store         StoreConfig `yaml:"store"`

	// SourceFile is the file the config was loaded from; empty for defaults.
	SourceFile string `yaml:"-"`
}

// LogConfig defines the log file sink.
type LogConfig struct {
	Level   string `yaml:"level"`
	Path    string `yaml:"path"`     // Empty means hermes.log beside the executable
	MaxSize int64  `yaml:"max_size"` // Bytes before the file is rotated to .old
	Stderr  bool   `yaml:"stderr"`
}

// StoreConfig selects the persistent per-user store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // registry | sqlite | memory; empty selects the platform default
	Path    string `yaml:"path"`    // SQLite file; empty means <UserConfigDir>/hermes/registry.db
}

const (
	// DefaultNamespace matches the key existing hermes installations write to.
	DefaultNamespace  = `bitSpatter\Hermes`
	DefaultMaxLogSize = 64 * 1024
	DefaultLogFile    = "hermes.log"
	FileName          = "hermes.yaml"
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Namespace:     DefaultNamespace,
		DebugArgument: "--debug",
		Log: LogConfig{
			Level:   "info",
			MaxSize: DefaultMaxLogSize,
		},
	}
}
