package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (POSTBYMAIL_MAILBOX_HOST, ...)
const EnvPrefix = "POSTBYMAIL"

// TLS modes for the mailbox connection
const (
	TLSModeSSL      = "ssl"
	TLSModeSTARTTLS = "starttls"
	TLSModeNone     = "none"
)

// Config holds the application configuration
type Config struct {
	LogLevel     string `mapstructure:"log_level"`
	DatabasePath string `mapstructure:"database_path"`

	// MboxPath replays an mbox file instead of connecting to the mailbox
	MboxPath string `mapstructure:"mbox_path"`

	Mailbox MailboxConfig `mapstructure:"mailbox"`
	Publish PublishConfig `mapstructure:"publish"`
	Images  ImagesConfig  `mapstructure:"images"`
}

// MailboxConfig holds the IMAP connection settings
type MailboxConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	TLS        string        `mapstructure:"tls"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	KeyringKey string        `mapstructure:"keyring_key"`
	Folder     string        `mapstructure:"folder"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PublishConfig holds the values stamped onto every published article
type PublishConfig struct {
	AllowedSenders []string `mapstructure:"allowed_senders"`
	CategoryID     int      `mapstructure:"category_id"`
	AuthorID       int      `mapstructure:"author_id"`
	Language       string   `mapstructure:"language"`
	Access         int      `mapstructure:"access"`
	State          int      `mapstructure:"state"`
}

// ImagesConfig holds the image storage settings
type ImagesConfig struct {
	PublicRoot string `mapstructure:"public_root"`
	Directory  string `mapstructure:"directory"`
	Owner      string `mapstructure:"owner"`
	Group      string `mapstructure:"group"`
	FileMode   string `mapstructure:"file_mode"`
	TempDir    string `mapstructure:"temp_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database_path", "/data/postbymail.db")
	v.SetDefault("mbox_path", "")

	v.SetDefault("mailbox.host", "")
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.tls", TLSModeSSL)
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.keyring_key", "")
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("mailbox.timeout", 60*time.Second)

	v.SetDefault("publish.allowed_senders", []string{})
	v.SetDefault("publish.category_id", 0)
	v.SetDefault("publish.author_id", 0)
	v.SetDefault("publish.language", "*")
	v.SetDefault("publish.access", 1)
	v.SetDefault("publish.state", 1)

	v.SetDefault("images.public_root", "")
	v.SetDefault("images.directory", "images/blog")
	v.SetDefault("images.owner", "")
	v.SetDefault("images.group", "")
	v.SetDefault("images.file_mode", "0644")
	v.SetDefault("images.temp_dir", "")
}

// LoadConfig loads configuration from an optional YAML file and the environment.
// An empty path skips the file; a named file that cannot be read is an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Mailbox.TLS = strings.ToLower(strings.TrimSpace(cfg.Mailbox.TLS))
	cfg.Publish.AllowedSenders = cleanList(cfg.Publish.AllowedSenders)

	return cfg, nil
}

// cleanList trims entries and drops empty ones
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

// UsesMbox reports whether the run replays an mbox file
func (c *Config) UsesMbox() bool {
	return c.MboxPath != ""
}

// FileModeValue parses the configured image file mode as octal
func (c *ImagesConfig) FileModeValue() (os.FileMode, error) {
	mode, err := strconv.ParseUint(c.FileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", c.FileMode, err)
	}
	return os.FileMode(mode), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if !c.UsesMbox() {
		if err := c.Mailbox.validate(); err != nil {
			return err
		}
	}

	if len(c.Publish.AllowedSenders) == 0 {
		return fmt.Errorf("publish.allowed_senders must list at least one address")
	}
	if c.Publish.CategoryID < 1 {
		return fmt.Errorf("publish.category_id is required")
	}
	if c.Publish.AuthorID < 1 {
		return fmt.Errorf("publish.author_id is required")
	}

	if c.Images.PublicRoot == "" {
		return fmt.Errorf("images.public_root is required")
	}
	if c.Images.Directory == "" {
		return fmt.Errorf("images.directory is required")
	}
	if _, err := c.Images.FileModeValue(); err != nil {
		return fmt.Errorf("images.file_mode: %w", err)
	}

	return nil
}

func (m *MailboxConfig) validate() error {
	if m.Host == "" {
		return fmt.Errorf("mailbox.host is required")
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("mailbox.port must be between 1 and 65535")
	}
	switch m.TLS {
	case TLSModeSSL, TLSModeSTARTTLS, TLSModeNone:
	default:
		return fmt.Errorf("mailbox.tls must be one of ssl, starttls, none (got %q)", m.TLS)
	}
	if m.Username == "" {
		return fmt.Errorf("mailbox.username is required")
	}
	if m.Password == "" && m.KeyringKey == "" {
		return fmt.Errorf("mailbox.password or mailbox.keyring_key is required")
	}
	if m.Folder == "" {
		return fmt.Errorf("mailbox.folder is required")
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("mailbox.timeout must be positive")
	}
	return nil
}
