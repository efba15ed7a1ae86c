// Package config implements scanbib's layered configuration: shipped
// defaults, a personal overlay discovered via xdg search paths, and
// SCANBIB_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config is the fully resolved, typed view of every setting spec.md §6's
// Configuration table names.
type Config struct {
	Debug bool `mapstructure:"debug"`

	Paths    PathsConfig    `mapstructure:"paths"`
	Grobid   GrobidConfig   `mapstructure:"grobid"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Language LanguageConfig `mapstructure:"language_prefixes"`
	Validator ValidatorConfig `mapstructure:"validator"`
}

type PathsConfig struct {
	ScannerPapersDir  string             `mapstructure:"scanner_papers_dir"`
	PublicationsDir   string             `mapstructure:"publications_dir"`
	LocalStoreDBPath  string             `mapstructure:"local_store_db_path"`
	MountTranslations []MountTranslation `mapstructure:"mount_translations"`
}

// MountTranslation maps a local mount root onto the path form the
// bibliographic store's host OS expects for linked-file attachments.
type MountTranslation struct {
	LocalPrefix string `mapstructure:"local_prefix"`
	HostPrefix  string `mapstructure:"host_prefix"`
	HostStyle   string `mapstructure:"host_style"` // "windows" or "posix"
}

type GrobidConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	AutoStart     bool   `mapstructure:"auto_start"`
	AutoStop      bool   `mapstructure:"auto_stop"`
	ContainerName string `mapstructure:"container_name"`
	MaxPages      int    `mapstructure:"max_pages"`
}

type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Model string `mapstructure:"model"`
}

type APIsConfig struct {
	BibliographicAPIKey      string `mapstructure:"bibliographic_api_key"`
	BibliographicLibraryID   string `mapstructure:"bibliographic_library_id"`
	BibliographicLibraryType string `mapstructure:"bibliographic_library_type"`
	CrossrefEmail            string `mapstructure:"crossref_email"`
}

type DaemonConfig struct {
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	RemoteCheckHost     string `mapstructure:"remote_check_host"`
}

type LanguageConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

type ValidatorConfig struct {
	AuthorCachePath  string        `mapstructure:"author_cache_path"`
	JournalCachePath string        `mapstructure:"journal_cache_path"`
	MaxAge           time.Duration `mapstructure:"max_age"`
	DenyList         []string      `mapstructure:"deny_list"`
}

// Init builds a *viper.Viper seeded with defaults, the two-file layered
// search path, and the SCANBIB_ environment prefix, mirroring the teacher's
// config.Init shape exactly.
func Init() (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("scanbib")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(path.Join(xdg.ConfigHome, "scanbib"))
	v.AddConfigPath("/etc/scanbib")

	v.SetEnvPrefix("SCANBIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v (using defaults)\n", err)
		}
	}

	return v, nil
}

// Load is Init followed by Unmarshal into a typed Config.
func Load() (*Config, error) {
	v, err := Init()
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("paths.scanner_papers_dir", path.Join(xdg.DataHome, "scanbib", "scanner_papers"))
	v.SetDefault("paths.publications_dir", path.Join(xdg.DataHome, "scanbib", "publications"))
	v.SetDefault("paths.local_store_db_path", path.Join(xdg.DataHome, "scanbib", "store.sqlite"))
	v.SetDefault("paths.mount_translations", []map[string]string{})

	v.SetDefault("grobid.host", "localhost")
	v.SetDefault("grobid.port", 8070)
	v.SetDefault("grobid.auto_start", false)
	v.SetDefault("grobid.auto_stop", false)
	v.SetDefault("grobid.container_name", "scanbib-grobid")
	v.SetDefault("grobid.max_pages", 6)

	v.SetDefault("ollama.host", "localhost")
	v.SetDefault("ollama.port", 11434)
	v.SetDefault("ollama.model", "llama3")

	v.SetDefault("apis.bibliographic_api_key", "")
	v.SetDefault("apis.bibliographic_library_id", "")
	v.SetDefault("apis.bibliographic_library_type", "user")
	v.SetDefault("apis.crossref_email", "")

	v.SetDefault("daemon.poll_interval_seconds", 2)
	v.SetDefault("daemon.remote_check_host", "")

	v.SetDefault("language_prefixes.enabled", []string{"NO", "EN", "DE"})

	v.SetDefault("validator.author_cache_path", path.Join(xdg.DataHome, "scanbib", "cache", "authors.json"))
	v.SetDefault("validator.journal_cache_path", path.Join(xdg.DataHome, "scanbib", "cache", "journals.json"))
	v.SetDefault("validator.max_age", "24h")
	v.SetDefault("validator.deny_list", []string{"Previously", "Published", "UC Berkeley", "University", "Press"})
}

// BaseURL formats the GROBID host/port pair as the base URL the
// parser client expects.
func (c GrobidConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// BaseURL formats the Ollama host/port pair as the base URL the
// oracle client expects.
func (c OllamaConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
