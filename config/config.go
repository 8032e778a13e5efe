package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cine-scraper/filter"
)

const (
	DefaultBaseURL = "https://ww4.123moviesfree.net/movies/"
	DefaultCSVPath = "movies_list.csv"
)

// DefaultSchedules run the scrape at 10am and 5pm every day.
var DefaultSchedules = []string{"0 0 10 * * *", "0 0 17 * * *"}

// EmailConfig contains configuration for email notifications
type EmailConfig struct {
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
}

// Enabled reports whether enough settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.RecipientEmail != ""
}

// Config is the application configuration, read from the environment.
type Config struct {
	BaseURL        string
	DataPath       string
	CSVPath        string
	RunMode        string
	// ExportTitle narrows RUN_MODE=export to titles containing it.
	ExportTitle    string
	RunAtStartup   bool
	Schedules      []string
	LogLevel       logrus.Level
	RequestTimeout time.Duration
	UserAgent      string
	Criteria       filter.Criteria
	Email          EmailConfig
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return FromMap(env)
}

// LoadFile reads the configuration from a .env file.
func LoadFile(path string) (*Config, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return FromMap(env)
}

// FromMap builds a Config from key/value pairs. Empty values fall back to
// defaults; malformed numbers are errors.
func FromMap(env map[string]string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		BaseURL:     get("BASE_URL", DefaultBaseURL),
		DataPath:    get("DATA_PATH", "./data"),
		CSVPath:     get("CSV_PATH", DefaultCSVPath),
		RunMode:     get("RUN_MODE", "scheduler"),
		ExportTitle: get("EXPORT_TITLE", ""),
		UserAgent:   get("USER_AGENT", ""),
		Schedules:   DefaultSchedules,
	}
	cfg.RunAtStartup = get("RUN_AT_STARTUP", "") == "true"

	if s := get("SCHEDULE", ""); s != "" {
		cfg.Schedules = nil
		for _, spec := range strings.Split(s, ";") {
			if spec = strings.TrimSpace(spec); spec != "" {
				cfg.Schedules = append(cfg.Schedules, spec)
			}
		}
	}

	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	timeout, err := strconv.Atoi(get("REQUEST_TIMEOUT", "10"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", env["REQUEST_TIMEOUT"])
	}
	cfg.RequestTimeout = time.Duration(timeout) * time.Second

	minIMDb, err := strconv.ParseFloat(get("FILTER_MIN_IMDB", "7.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_MIN_IMDB: %w", err)
	}
	cfg.Criteria = filter.Criteria{
		MinIMDb:     minIMDb,
		Genre:       get("FILTER_GENRE", ""),
		Actor:       get("FILTER_ACTOR", ""),
		Director:    get("FILTER_DIRECTOR", ""),
		Country:     get("FILTER_COUNTRY", ""),
		Duration:    get("FILTER_DURATION", ""),
		ReleaseYear: get("FILTER_RELEASE_YEAR", ""),
	}
	if err := cfg.Criteria.Validate(); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(get("EMAIL_SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_SMTP_PORT: %w", err)
	}
	cfg.Email = EmailConfig{
		SMTPHost:       get("EMAIL_SMTP_HOST", ""),
		SMTPPort:       port,
		SenderEmail:    get("EMAIL_SENDER", ""),
		SenderPassword: get("EMAIL_PASSWORD", ""),
		RecipientEmail: get("EMAIL_RECIPIENT", ""),
	}

	switch cfg.RunMode {
	case "scheduler", "once", "export", "mailtest":
	default:
		return nil, fmt.Errorf("unknown RUN_MODE %q", cfg.RunMode)
	}
	return cfg, nil
}

// MaskedPassword shows only the edges of the SMTP secret for logging.
func (e EmailConfig) MaskedPassword() string {
	p := e.SenderPassword
	switch {
	case p == "":
		return ""
	case len(p) > 8:
		return p[:4] + "..." + p[len(p)-4:]
	default:
		return "***"
	}
}
