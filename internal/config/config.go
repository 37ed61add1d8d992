package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/sepadd/internal/model"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "sepadd.yaml"

// Config represents the top-level sepadd.yaml configuration.
type Config struct {
	Adapter                 string         `yaml:"adapter"`
	SavePath                string         `yaml:"save_path"`
	RequestedCollectionDate string         `yaml:"requested_collection_date"` // YYYY-MM-DD
	Creditor                CreditorConfig `yaml:"creditor"`
	Debug                   bool           `yaml:"debug"`
	Log                     LogConfig      `yaml:"log"`
	Cache                   CacheConfig    `yaml:"cache"`
	ImportPath              string         `yaml:"import_path"`
	HistoryPath             string         `yaml:"history_path"`
	Git                     GitConfig      `yaml:"git"`

	// root is the directory relative paths are resolved against.
	root string
}

// CreditorConfig is the default creditor identity. Batches may override it.
type CreditorConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	IBAN string `yaml:"iban"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// CacheConfig bounds the parse cache. Size 0 disables it.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a sepadd.yaml file from disk. ${VAR} placeholders are expanded
// from the environment before decoding, and unset keys keep their defaults.
// Relative paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.root = filepath.Dir(path)
	return cfg, nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} placeholders with the environment value. Any
// other "$" is kept as written.
func expandEnv(data []byte) []byte {
	return placeholder.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(placeholder.FindSubmatch(m)[1])))
	})
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Adapter:     "filesystem",
		SavePath:    filepath.Join("var", "sepa"),
		ImportPath:  filepath.Join("var", "inbox"),
		HistoryPath: filepath.Join("var", "history.csv"),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Cache: CacheConfig{Size: 128},
		Git: GitConfig{
			AuthorName:  "sepadd",
			AuthorEmail: "sepadd@localhost",
		},
	}
}

// Root returns the directory relative paths are resolved against.
func (c *Config) Root() string { return c.root }

// SetRoot changes the directory relative paths are resolved against.
func (c *Config) SetRoot(dir string) { c.root = dir }

// SaveDir is the resolved save_path.
func (c *Config) SaveDir() string { return c.resolve(c.SavePath) }

// ImportDir is the resolved import_path.
func (c *Config) ImportDir() string { return c.resolve(c.ImportPath) }

// HistoryFile is the resolved history_path. Empty disables the history.
func (c *Config) HistoryFile() string { return c.resolve(c.HistoryPath) }

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// Defaults validates the collection date and creditor values and returns
// them as model defaults.
func (c *Config) Defaults() (model.Defaults, error) {
	d, err := model.NewDefaults(c.RequestedCollectionDate, c.Creditor.ID, c.Creditor.Name, c.Creditor.IBAN)
	if err != nil {
		return model.Defaults{}, fmt.Errorf("config: %w", err)
	}
	return d, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Defaults(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.SavePath) == "" {
		errs = append(errs, fmt.Errorf("config: %w: save_path is empty", model.ErrInvalidArgument))
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("config: %w: log.level: %w", model.ErrInvalidArgument, err))
		}
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("config: %w: log.format %q is not console or json", model.ErrInvalidArgument, c.Log.Format))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("config: %w: cache.size %d is negative", model.ErrInvalidArgument, c.Cache.Size))
	}
	return errors.Join(errs...)
}
