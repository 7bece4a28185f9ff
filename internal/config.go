package internal

import (
	"fmt"
	"geochat/infrastructure/realtime"
	"geochat/mailer"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8000"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AccessTokenDuration  time.Duration `env:"ACCESS_TOKEN_DURATION,default=60m"`
	RefreshTokenDuration time.Duration `env:"REFRESH_TOKEN_DURATION,default=168h"`
	OTPLifetime          time.Duration `env:"OTP_LIFETIME,default=5m"`
	AdminEmails          string        `env:"ADMIN_EMAILS"`

	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=4"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
	HistorySize          int           `env:"HISTORY_SIZE,default=50"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	EmailBackend      string `env:"EMAIL_BACKEND,default=console"`
	EmailHost         string `env:"EMAIL_HOST"`
	EmailPort         int    `env:"EMAIL_PORT,default=587"`
	EmailHostUser     string `env:"EMAIL_HOST_USER"`
	EmailHostPassword string `env:"EMAIL_HOST_PASSWORD"`
	DefaultFromEmail  string `env:"DEFAULT_FROM_EMAIL,default=noreply@geochat.local"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AdminEmailList splits ADMIN_EMAILS on commas, lowercased and without blanks.
func (c Config) AdminEmailList() []string {
	emails := lo.Map(strings.Split(c.AdminEmails, ","), func(e string, _ int) string {
		return strings.ToLower(strings.TrimSpace(e))
	})
	return lo.Uniq(lo.Compact(emails))
}

func (c Config) SessionConfig() realtime.SessionConfig {
	cfg := realtime.DefaultSessionConfig()
	if c.ConnectionBufferSize > 0 {
		cfg.SendBuffer = c.ConnectionBufferSize
	}
	if c.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.MaxMessageSize
	}
	return cfg
}

func (c Config) SMTPConfig() mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     c.EmailHost,
		Port:     c.EmailPort,
		Username: c.EmailHostUser,
		Password: c.EmailHostPassword,
		From:     c.DefaultFromEmail,
	}
}

// Validate rejects combinations go-env cannot express with tags.
func (c Config) Validate() error {
	if c.NumberOfWorkers <= 0 {
		return fmt.Errorf("NUMBER_OF_WORKERS must be positive, got %d", c.NumberOfWorkers)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE must be positive, got %d", c.BufferSize)
	}
	if c.LowCapacityThreshold <= 0 || c.LowCapacityThreshold > 100 {
		return fmt.Errorf("LOW_CAPACITY_THRESHOLD must be a percentage, got %d", c.LowCapacityThreshold)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.HistorySize)
	}
	backend := strings.ToLower(c.EmailBackend)
	if backend != mailer.ConsoleBackend && backend != mailer.SMTPBackend {
		return fmt.Errorf("EMAIL_BACKEND must be %q or %q, got %q",
			mailer.ConsoleBackend, mailer.SMTPBackend, c.EmailBackend)
	}
	if backend == mailer.SMTPBackend && c.EmailHost == "" {
		return fmt.Errorf("EMAIL_HOST is required with the smtp backend")
	}
	return nil
}
