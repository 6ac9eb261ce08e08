package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	DB       DBConfig
	Mail     MailConfig
	Telegram TelegramConfig
	Log      LogConfig

	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT,default=30s"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE,default=false"`
}

type HTTPConfig struct {
	Port            int           `env:"PORT,default=3000"`
	PublicDir       string        `env:"PUBLIC_DIR,default=public"`
	UploadDir       string        `env:"UPLOAD_DIR,default=public/uploads"`
	UploadURLPrefix string        `env:"UPLOAD_URL_PREFIX,default=/uploads"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

type DBConfig struct {
	Host         string `env:"DB_HOST,default=localhost"`
	Port         int    `env:"DB_PORT,default=5432"`
	User         string `env:"DB_USER,default=postgres"`
	Password     string `env:"DB_PASSWORD"`
	Database     string `env:"DB_NAME,default=delivery"`
	SSLMode      string `env:"DB_SSLMODE,default=disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=10"`
}

// MailConfig selects the relay used for new-order emails.
// Driver is one of "smtp", "ses" or "none".
type MailConfig struct {
	Driver       string `env:"MAIL_DRIVER,default=smtp"`
	SMTPHost     string `env:"SMTP_HOST,default=smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"` // app password, not the account password
	From         string `env:"MAIL_FROM"`
	To           string `env:"MAIL_TO"` // restaurant inbox
	AWSRegion    string `env:"AWS_REGION,default=us-east-1"`
	// Optional; when empty the default AWS credential chain is used.
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type TelegramConfig struct {
	Token       string `env:"TELEGRAM_TOKEN"`
	AdminChatID int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTPUser
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// DSN returns a postgres URL understood by the pgx driver.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Enabled reports whether a Telegram admin chat is configured.
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.AdminChatID != 0
}
