package model

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MailConfig holds the mailbox account and the IMAP/SMTP endpoints.
type MailConfig struct {
	// Username is the mailbox login, also used as the SMTP login.
	Username string `mapstructure:"username" yaml:"username"`

	// Password is the app password for both IMAP and SMTP.
	Password string `mapstructure:"password" yaml:"password"`

	// SenderName is the From identity of confirmation emails. Either a full
	// address or a display name for Username.
	SenderName string `mapstructure:"sender_name" yaml:"sender_name"`

	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`

	// IMAPTLS selects implicit TLS; false dials plain and upgrades with STARTTLS.
	IMAPTLS bool `mapstructure:"imap_tls" yaml:"imap_tls"`

	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" yaml:"smtp_port"`
}

// StoreConfig locates the ticket database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig controls confirmation emails.
type NotifyConfig struct {
	TemplatePath string `mapstructure:"template_path" yaml:"template_path"`
	Subject      string `mapstructure:"subject" yaml:"subject"`
}

// PollConfig controls the poll loop.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// Output is "stdout", "stderr" or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mail   MailConfig   `mapstructure:"mail" yaml:"mail"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Poll   PollConfig   `mapstructure:"poll" yaml:"poll"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"mail.username":        "EMAIL_ID",
	"mail.password":        "APP_PASS",
	"mail.sender_name":     "RECIPIENT_NAME",
	"mail.imap_host":       "IMAP_HOST",
	"mail.imap_port":       "IMAP_PORT",
	"mail.imap_tls":        "IMAP_TLS",
	"mail.smtp_host":       "SMTP_HOST",
	"mail.smtp_port":       "SMTP_PORT",
	"store.path":           "STORE_PATH",
	"notify.template_path": "TEMPLATE_PATH",
	"notify.subject":       "NOTIFY_SUBJECT",
	"poll.interval":        "POLL_INTERVAL",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"log.output":           "LOG_OUTPUT",
}

// DefaultConfigPath is the optional YAML file read when no path is given.
const DefaultConfigPath = "supportdesk.yaml"

// DefaultPollInterval is the pause between poll cycles.
const DefaultPollInterval = 500 * time.Millisecond

// setDefaults registers the default value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mail.imap_host", "imap.gmail.com")
	v.SetDefault("mail.imap_port", "993")
	v.SetDefault("mail.imap_tls", true)
	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("store.path", "support_ticketing_system.db")
	v.SetDefault("notify.template_path", "index.html")
	v.SetDefault("notify.subject", "Support Ticket Update")
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
}

// LoadConfig loads .env into the environment, then reads configuration from
// the YAML file at path (if it exists) overlaid with environment variables.
// An empty path skips the file.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = DefaultPollInterval
	}

	return cfg, nil
}

// ResolveSecrets fills an empty mail password from lookup, which is typically
// the system keyring. Lookup errors leave the password empty; login will then
// fail at connect time and be logged per cycle.
func (c *AppConfig) ResolveSecrets(lookup func() (string, error)) {
	if c.Mail.Password != "" || lookup == nil {
		return
	}
	if pass, err := lookup(); err == nil {
		c.Mail.Password = pass
	}
}

// Validate reports configuration that makes every cycle fail.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.Mail.Username == "" {
		missing = append(missing, "EMAIL_ID")
	}
	if c.Mail.IMAPHost == "" {
		missing = append(missing, "IMAP_HOST")
	}
	if c.Mail.SMTPHost == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.Store.Path == "" {
		missing = append(missing, "STORE_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
