package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the simulator configuration
type Config struct {
	// Execution settings
	Execution struct {
		Implementation string `toml:"implementation"` // "pipelined" or "single-cycle"
		Heuristic      string `toml:"heuristic"`       // "buffered" or "always-not-taken"
		MaxCycles      uint64 `toml:"max_cycles"`
		StackBase      uint32 `toml:"stack_base"`
		StackSize      uint32 `toml:"stack_size"`
		Verbose        bool   `toml:"verbose"`
		EnableHistory  bool   `toml:"enable_history"`
	} `toml:"execution"`

	// Cache settings: geometry of the default multi-level hierarchy
	Cache struct {
		L1Size         int   `toml:"l1_size"`
		L1BlockSize    int   `toml:"l1_block_size"`
		L1Associativity int  `toml:"l1_associativity"`
		L2Size         int   `toml:"l2_size"`
		L3Size         int   `toml:"l3_size"`
		MissPenalty    int32 `toml:"miss_penalty"`
		UseVictimCache bool  `toml:"use_victim_cache"`
		Exclusive      bool  `toml:"exclusive"`
	} `toml:"cache"`

	// Trace settings: cache-bench harness input/output files
	Trace struct {
		InputFile  string `toml:"input_file"`
		OutputFile string `toml:"output_file"`
	} `toml:"trace"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Execution defaults
	cfg.Execution.Implementation = "pipelined"
	cfg.Execution.Heuristic = "buffered"
	cfg.Execution.MaxCycles = 1000000
	cfg.Execution.StackBase = 0x80000000
	cfg.Execution.StackSize = 0x00400000
	cfg.Execution.Verbose = false
	cfg.Execution.EnableHistory = false

	// Cache defaults: the 3-level L1/L2/L3 geometry used throughout
	cfg.Cache.L1Size = 16 * 1024
	cfg.Cache.L1BlockSize = 64
	cfg.Cache.L1Associativity = 1
	cfg.Cache.L2Size = 128 * 1024
	cfg.Cache.L3Size = 2 * 1024 * 1024
	cfg.Cache.MissPenalty = 100
	cfg.Cache.UseVictimCache = false
	cfg.Cache.Exclusive = false

	// Trace defaults
	cfg.Trace.InputFile = ""
	cfg.Trace.OutputFile = "amat.csv"

	return cfg
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rv32isim\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rv32isim")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/rv32isim/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rv32isim")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rv32isim\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "rv32isim", "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/rv32isim/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "rv32isim", "logs")

	default:
		return "logs"
	}

	// Ensure directory exists
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
