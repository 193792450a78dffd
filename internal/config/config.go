package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is wrapped by every problem Validate reports.
var ErrInvalid = errors.New("invalid configuration")

// DefaultIndexDir is the index location relative to the data root.
const DefaultIndexDir = ".fhistory"

// Config represents the main configuration for fh.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Repository RepositoryConfig `toml:"repository"`
	Database   DatabaseConfig   `toml:"database"`
	Vaults     []VaultConfig    `toml:"vaults"`
}

// RepositoryConfig holds defaults for the monitored tree. Command-line flags
// override them.
type RepositoryConfig struct {
	DataDir  string   `toml:"data_dir,omitempty"`
	IndexDir string   `toml:"index_dir"`
	Checksum string   `toml:"checksum"` // used by init only
	Ignore   []string `toml:"ignore"`
	Workers  int      `toml:"workers"` // 0 means one per CPU
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with default values under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Repository: RepositoryConfig{
			IndexDir: DefaultIndexDir,
			Checksum: "sha256",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate reports every invalid setting, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		bad("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	switch strings.ToLower(c.Repository.Checksum) {
	case "", "sha256", "md5":
	default:
		bad("repository.checksum %q is not sha256 or md5", c.Repository.Checksum)
	}
	if c.Repository.Workers < 0 {
		bad("repository.workers must not be negative")
	}

	switch c.Database.Type {
	case "memory", "none":
	case "sqlite":
		if c.Database.DataDir == "" {
			bad("database.data_dir is required for sqlite")
		}
	default:
		bad("database.type %q is not sqlite, memory or none", c.Database.Type)
	}

	seen := make(map[string]bool)
	for i, v := range c.Vaults {
		if v.Name == "" {
			bad("vaults[%d] has no name", i)
		} else if seen[v.Name] {
			bad("vault name %q is used twice", v.Name)
		}
		seen[v.Name] = true

		switch v.Type {
		case "memory":
		case "filesystem":
			if v.FSVaultRoot == "" {
				bad("vault %q requires fs_vault_root", v.Name)
			}
		case "s3":
			if v.S3Bucket == "" {
				bad("vault %q requires s3_bucket", v.Name)
			}
		default:
			bad("vault %q has unknown type %q", v.Name, v.Type)
		}
	}

	return errors.Join(errs...)
}

// Vault returns the vault named name. An empty name selects the only
// configured vault.
func (c *Config) Vault(name string) (VaultConfig, error) {
	if name == "" {
		switch len(c.Vaults) {
		case 0:
			return VaultConfig{}, fmt.Errorf("%w: no vaults configured", ErrInvalid)
		case 1:
			return c.Vaults[0], nil
		default:
			return VaultConfig{}, fmt.Errorf("%w: %d vaults configured, choose one by name", ErrInvalid, len(c.Vaults))
		}
	}
	for _, v := range c.Vaults {
		if v.Name == name {
			return v, nil
		}
	}
	return VaultConfig{}, fmt.Errorf("%w: no vault named %q", ErrInvalid, name)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader on top of base, so keys the
// input omits keep base's values. Unknown keys are an error.
func (m *Manager) Read(r io.Reader, base *Config) (*Config, error) {
	cfg := *base
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path, using defaults
// under baseDir for anything the file leaves out.
func ReadFromFile(path, baseDir string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f, NewConfig(baseDir))
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path, baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfig(baseDir), nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
