package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	VaultDir     string `json:"vault_dir"`
	APIBaseURL   string `json:"api_base_url,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	StaleAfterMS int    `json:"stale_after_ms,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	VaultDirAbs  string `json:"-"` // Absolute path to the vault directory

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		VaultDir:     ".",
		StaleAfterMS: defaultStaleAfterMS,
	}
}

const defaultStaleAfterMS = 5000

// ConfigFileName is the default config file name.
const ConfigFileName = ".vaultmd.json"

// apiKeyEnvVar overrides the api_key config field when set.
const apiKeyEnvVar = "VAULTMD_API_KEY"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigFileRead     = errors.New("cannot read config file")
	errConfigInvalid      = errors.New("invalid config")
	errVaultDirEmpty      = errors.New("vault_dir must not be empty")
	errStaleAfterNegative = errors.New("stale_after_ms must not be negative")
)

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/vaultmd/config.json if set, otherwise
// ~/.config/vaultmd/config.json. Returns empty string if the home
// directory cannot be determined.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "vaultmd", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "vaultmd", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride  string            // -C/--chdir flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	VaultDirOverride string            // --vault flag value; empty means no override
	Env              map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/vaultmd/config.json or ~/.config/vaultmd/config.json)
// 3. Project config file at default location (.vaultmd.json, if exists)
// 4. Explicit config file via configPath (if non-empty)
// 5. VAULTMD_API_KEY environment variable (api_key only)
// 6. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	// Resolve effective working directory
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	// Load global config if it exists
	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	// Load project/explicit config file
	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	// Apply environment override
	if key := input.Env[apiKeyEnvVar]; key != "" {
		cfg.APIKey = key
	}

	// Apply CLI overrides
	if input.VaultDirOverride != "" {
		cfg.VaultDir = input.VaultDirOverride
		// --vault always means a local directory vault
		cfg.APIBaseURL = ""
	}

	// Validate
	validateErr := validateConfig(cfg)
	if validateErr != nil {
		return Config{}, validateErr
	}

	// Resolve all paths to absolute
	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.VaultDir) {
		cfg.VaultDirAbs = cfg.VaultDir
	} else {
		cfg.VaultDirAbs = filepath.Join(workDir, cfg.VaultDir)
	}

	return cfg, nil
}

// loadGlobalConfig loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobalConfig(env map[string]string) (Config, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return Config{}, "", nil
	}

	globalCfg, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return globalCfg, globalCfgPath, nil
}

// loadProjectConfig loads the project config file (.vaultmd.json) or an
// explicit config file. Returns the config, the path if loaded, and any error.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		// Explicit config file - must exist
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		// Check existence first to provide a clear "not found" error
		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
	} else {
		// Default project config file - optional
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	fileCfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return fileCfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return zero config. Returns the config, whether the file was loaded, and
// any error.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

// formatConfig renders the resolved config as indented JSON. The API key
// is redacted so print-config output is safe to paste into bug reports.
func formatConfig(cfg Config) (string, error) {
	if cfg.APIKey != "" {
		cfg.APIKey = "<redacted>"
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.VaultDir != "" {
		base.VaultDir = overlay.VaultDir
	}

	if overlay.APIBaseURL != "" {
		base.APIBaseURL = overlay.APIBaseURL
	}

	if overlay.APIKey != "" {
		base.APIKey = overlay.APIKey
	}

	if overlay.StaleAfterMS != 0 {
		base.StaleAfterMS = overlay.StaleAfterMS
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.VaultDir == "" && cfg.APIBaseURL == "" {
		return errVaultDirEmpty
	}

	if cfg.StaleAfterMS < 0 {
		return errStaleAfterNegative
	}

	return nil
}
