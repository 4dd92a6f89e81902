package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		LogLevel:     "info",
		DatabasePath: "/tmp/postbymail.db",
		Mailbox: MailboxConfig{
			Host:     "imap.example.com",
			Port:     993,
			TLS:      TLSModeSSL,
			Username: "blog@example.com",
			Password: "secret",
			Folder:   "INBOX",
			Timeout:  time.Minute,
		},
		Publish: PublishConfig{
			AllowedSenders: []string{"author@example.com"},
			CategoryID:     14,
			AuthorID:       42,
			Language:       "*",
			Access:         1,
			State:          1,
		},
		Images: ImagesConfig{
			PublicRoot: "/var/www/html",
			Directory:  "images/blog",
			FileMode:   "0644",
		},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Mailbox.Port != 993 || cfg.Mailbox.TLS != TLSModeSSL || cfg.Mailbox.Folder != "INBOX" {
		t.Errorf("Mailbox defaults: got %+v", cfg.Mailbox)
	}
	if cfg.Mailbox.Timeout != 60*time.Second {
		t.Errorf("Timeout: got %v, want 60s", cfg.Mailbox.Timeout)
	}
	if cfg.Publish.Language != "*" || cfg.Publish.Access != 1 || cfg.Publish.State != 1 {
		t.Errorf("Publish defaults: got %+v", cfg.Publish)
	}
	if cfg.Images.Directory != "images/blog" || cfg.Images.FileMode != "0644" {
		t.Errorf("Images defaults: got %+v", cfg.Images)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postbymail.yaml")
	yaml := strings.Join([]string{
		"database_path: /srv/blog.db",
		"mailbox:",
		"  host: imap.example.com",
		"  tls: STARTTLS",
		"  username: blog@example.com",
		"  timeout: 15s",
		"publish:",
		"  allowed_senders:",
		"    - Author@Example.com",
		"    - ' '",
		"  category_id: 14",
		"  author_id: 42",
		"images:",
		"  public_root: /var/www/html",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("POSTBYMAIL_MAILBOX_PASSWORD", "from-env")
	t.Setenv("POSTBYMAIL_MAILBOX_PORT", "143")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DatabasePath != "/srv/blog.db" {
		t.Errorf("DatabasePath: got %q", cfg.DatabasePath)
	}
	if cfg.Mailbox.TLS != TLSModeSTARTTLS {
		t.Errorf("TLS: got %q, want %q", cfg.Mailbox.TLS, TLSModeSTARTTLS)
	}
	if cfg.Mailbox.Password != "from-env" {
		t.Errorf("Password: got %q, want %q", cfg.Mailbox.Password, "from-env")
	}
	if cfg.Mailbox.Port != 143 {
		t.Errorf("Port: got %d, want 143", cfg.Mailbox.Port)
	}
	if cfg.Mailbox.Timeout != 15*time.Second {
		t.Errorf("Timeout: got %v, want 15s", cfg.Mailbox.Timeout)
	}
	if len(cfg.Publish.AllowedSenders) != 1 || cfg.Publish.AllowedSenders[0] != "Author@Example.com" {
		t.Errorf("AllowedSenders: got %q", cfg.Publish.AllowedSenders)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig() with missing file: expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no database", func(c *Config) { c.DatabasePath = "" }, "database_path"},
		{"no host", func(c *Config) { c.Mailbox.Host = "" }, "mailbox.host"},
		{"bad port", func(c *Config) { c.Mailbox.Port = 70000 }, "mailbox.port"},
		{"bad tls", func(c *Config) { c.Mailbox.TLS = "tls1.3" }, "mailbox.tls"},
		{"no credentials", func(c *Config) { c.Mailbox.Password = "" }, "mailbox.password"},
		{"keyring only", func(c *Config) { c.Mailbox.Password = ""; c.Mailbox.KeyringKey = "imap" }, ""},
		{"mbox skips mailbox", func(c *Config) { c.MboxPath = "/tmp/in.mbox"; c.Mailbox = MailboxConfig{} }, ""},
		{"no senders", func(c *Config) { c.Publish.AllowedSenders = nil }, "allowed_senders"},
		{"no category", func(c *Config) { c.Publish.CategoryID = 0 }, "category_id"},
		{"no author", func(c *Config) { c.Publish.AuthorID = 0 }, "author_id"},
		{"no public root", func(c *Config) { c.Images.PublicRoot = "" }, "public_root"},
		{"bad file mode", func(c *Config) { c.Images.FileMode = "rw-r--r--" }, "file_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFileModeValue(t *testing.T) {
	images := ImagesConfig{FileMode: "0640"}
	mode, err := images.FileModeValue()
	if err != nil {
		t.Fatalf("FileModeValue() error = %v", err)
	}
	if mode != 0640 {
		t.Errorf("FileModeValue() = %o, want 640", mode)
	}
}
