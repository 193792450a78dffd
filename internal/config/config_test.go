package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:  "/home/user/.local/share/fh",
		LogDir:   "/home/user/.local/share/fh/log",
		LogLevel: "debug",
		Repository: RepositoryConfig{
			DataDir:  "/home/user/photos",
			IndexDir: ".fhistory",
			Checksum: "md5",
			Ignore:   []string{"*.tmp", "cache/"},
			Workers:  4,
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "offsite", S3Bucket: "bucket", S3Endpoint: "http://localhost:9000"},
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/fh/db"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf, &Config{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Repository.Checksum != "md5" || got.Repository.Workers != 4 {
		t.Errorf("Repository = %+v, want checksum md5 and 4 workers", got.Repository)
	}
	if len(got.Repository.Ignore) != 2 {
		t.Fatalf("len(Repository.Ignore) = %d, want 2", len(got.Repository.Ignore))
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Vaults[1].S3Endpoint != "http://localhost:9000" {
		t.Errorf("Vault.S3Endpoint = %q, want %q", got.Vaults[1].S3Endpoint, "http://localhost:9000")
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
}

func TestManager_Read(t *testing.T) {
	t.Run("keeps defaults for omitted keys", func(t *testing.T) {
		m := &Manager{}
		got, err := m.Read(strings.NewReader("log_level = \"warn\"\n[repository]\nworkers = 2\n"), NewConfig("/data/fh"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.LogLevel != "warn" || got.Repository.Workers != 2 {
			t.Errorf("overrides not applied: %+v", got)
		}
		if got.Repository.IndexDir != DefaultIndexDir || got.Database.Type != "sqlite" {
			t.Errorf("defaults lost: %+v", got)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		m := &Manager{}
		_, err := m.Read(strings.NewReader("[repository]\nindex_path = \"x\"\n"), NewConfig("/data/fh"))
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("Read() error = %v, want ErrInvalid", err)
		}
		if !strings.Contains(err.Error(), "repository.index_path") {
			t.Errorf("error %q does not name the key", err)
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/fh")

	if cfg.BaseDir != "/data/fh" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/fh")
	}
	if cfg.LogDir != "/data/fh/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/fh/log")
	}
	if cfg.Database.DataDir != "/data/fh/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/fh/db")
	}
	if cfg.Repository.IndexDir != ".fhistory" {
		t.Errorf("Repository.IndexDir = %q, want %q", cfg.Repository.IndexDir, ".fhistory")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad checksum", func(c *Config) { c.Repository.Checksum = "crc32" }, "repository.checksum"},
		{"negative workers", func(c *Config) { c.Repository.Workers = -1 }, "workers"},
		{"bad database", func(c *Config) { c.Database.Type = "postgres" }, "database.type"},
		{"sqlite without dir", func(c *Config) { c.Database.DataDir = "" }, "data_dir"},
		{"vault without name", func(c *Config) { c.Vaults = []VaultConfig{{Type: "memory"}} }, "no name"},
		{"duplicate vault", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "memory", Name: "a"}, {Type: "memory", Name: "a"}}
		}, "used twice"},
		{"filesystem without root", func(c *Config) {
			c.Vaults = []VaultConfig{{Type: "filesystem", Name: "a"}}
		}, "fs_vault_root"},
		{"s3 without bucket", func(c *Config) { c.Vaults = []VaultConfig{{Type: "s3", Name: "a"}} }, "s3_bucket"},
		{"unknown vault type", func(c *Config) { c.Vaults = []VaultConfig{{Type: "ftp", Name: "a"}} }, "unknown type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/fh")
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestConfig_Vault(t *testing.T) {
	cfg := NewConfig("/data/fh")
	if _, err := cfg.Vault(""); err == nil {
		t.Error("Vault(\"\") expected error with no vaults")
	}

	cfg.Vaults = []VaultConfig{{Type: "memory", Name: "one"}}
	if v, err := cfg.Vault(""); err != nil || v.Name != "one" {
		t.Errorf("Vault(\"\") = %+v, %v, want the only vault", v, err)
	}

	cfg.Vaults = append(cfg.Vaults, VaultConfig{Type: "memory", Name: "two"})
	if _, err := cfg.Vault(""); err == nil {
		t.Error("Vault(\"\") expected error with two vaults")
	}
	if v, err := cfg.Vault("two"); err != nil || v.Name != "two" {
		t.Errorf("Vault(two) = %+v, %v", v, err)
	}
	if _, err := cfg.Vault("three"); err == nil {
		t.Error("Vault(three) expected error")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fh.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fh.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fh.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := Load(path, dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		got, err := Load("/nonexistent/path/fh.toml", "/data/fh")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.LogDir != "/data/fh/log" {
			t.Errorf("LogDir = %q, want default", got.LogDir)
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fh.toml")
		if err := os.WriteFile(path, []byte("log_level = \"loud\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, "/data/fh"); !errors.Is(err, ErrInvalid) {
			t.Errorf("Load() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("ReadFromFile errors for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/fh.toml", "/data/fh"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
