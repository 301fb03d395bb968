package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var (
	ErrMissingCredentials = errors.New("missing portal credentials")
	ErrInvalidJob         = errors.New("invalid booking job")
)

// CommonConfig holds settings shared by every user.
type CommonConfig struct {
	Environment        string `json:"environment" toml:"environment"`
	LogLevel           string `json:"log_level" toml:"log_level"`
	Timezone           string `json:"timezone" toml:"timezone"`
	StatusAddr         string `json:"status_addr" toml:"status_addr"`
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds" toml:"http_timeout_seconds"`

	BookingBaseURL     string `json:"booking_base_url" toml:"booking_base_url"`
	LoginURL           string `json:"login_url" toml:"login_url"`
	LoginUserField     string `json:"login_user_field" toml:"login_user_field"`
	LoginPasswordField string `json:"login_password_field" toml:"login_password_field"`
	LoginFailureMarker string `json:"login_failure_marker" toml:"login_failure_marker"`

	GoogleClientID     string `json:"google_client_id" toml:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret" toml:"google_client_secret"`
	GoogleRedirectURI  string `json:"google_redirect_uri" toml:"google_redirect_uri"`
	GoogleTokenFile    string `json:"google_token_file" toml:"google_token_file"`

	GithubToken string `json:"github_token" toml:"github_token"`
	GithubRepo  string `json:"github_repo" toml:"github_repo"`
}

// UserConfig is one portal account and the bookings to make with it.
type UserConfig struct {
	Username         string       `json:"username" toml:"username"`
	Password         string       `json:"password" toml:"password"`
	GoogleCalendarID string       `json:"google_calendar_id" toml:"google_calendar_id"`
	ICSFile          string       `json:"ics_file" toml:"ics_file"`
	GithubPath       string       `json:"github_path" toml:"github_path"`
	SyncCron         string       `json:"sync_cron" toml:"sync_cron"`
	Bookings         []BookingJob `json:"bookings" toml:"bookings"`
}

// BookingJob books one slot whenever its cron expression fires. The date is
// either fixed or DaysAhead days after the run.
type BookingJob struct {
	Name       string `json:"name" toml:"name"`
	Cron       string `json:"cron" toml:"cron"`
	Date       string `json:"date" toml:"date"`
	DaysAhead  int    `json:"days_ahead" toml:"days_ahead"`
	Time       string `json:"time" toml:"time"`
	FacilityID string `json:"facility_id" toml:"facility_id"`
	// Strict rejects a time that is not in the facility's session table
	// instead of booking the first session.
	Strict bool `json:"strict" toml:"strict"`
}

// LoadEnv reads a .env file if present. Missing files are not an error.
func LoadEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func LoadCommonConfig(filename string) (*CommonConfig, error) {
	var cfg CommonConfig
	if err := decodeFile(filename, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *CommonConfig) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Hong_Kong"
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = 30
	}
	if c.GoogleTokenFile == "" {
		c.GoogleTokenFile = "token.json"
	}
}

func (c *CommonConfig) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)
	c.GithubToken = getEnv("GITHUB_TOKEN", c.GithubToken)
}

// HTTPTimeout returns the portal request timeout.
func (c *CommonConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Location loads the configured timezone.
func (c *CommonConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LoadUserConfig reads a .json or .toml user file. Empty credentials are
// taken from HKU_UID and HKU_PWD.
func LoadUserConfig(filename string) (*UserConfig, error) {
	var cfg UserConfig
	if err := decodeFile(filename, &cfg); err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("HKU_UID")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("HKU_PWD")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &cfg, nil
}

// LoadUserConfigs loads every .json and .toml file in dir, sorted by name.
func LoadUserConfigs(dir string) ([]*UserConfig, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	users := make([]*UserConfig, 0, len(files))
	for _, f := range files {
		u, err := LoadUserConfig(f)
		if err != nil {
			return nil, fmt.Errorf("error loading user config (%s): %w", f, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (u *UserConfig) Validate() error {
	if u.Username == "" || u.Password == "" {
		return ErrMissingCredentials
	}
	if u.SyncCron != "" {
		if _, err := cron.ParseStandard(u.SyncCron); err != nil {
			return fmt.Errorf("sync_cron %q: %w", u.SyncCron, err)
		}
	}
	for i, job := range u.Bookings {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("bookings[%d]: %w", i, err)
		}
	}
	return nil
}

func (j BookingJob) Validate() error {
	if _, err := cron.ParseStandard(j.Cron); err != nil {
		return fmt.Errorf("%w: cron %q: %v", ErrInvalidJob, j.Cron, err)
	}
	if j.Date != "" {
		if _, err := time.Parse("2006-01-02", j.Date); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidJob, j.Date)
		}
	}
	if j.DaysAhead < 0 {
		return fmt.Errorf("%w: days_ahead must not be negative", ErrInvalidJob)
	}
	if len(j.Time) != 8 {
		return fmt.Errorf("%w: time %q is not HHMMHHMM", ErrInvalidJob, j.Time)
	}
	if j.FacilityID == "" {
		return fmt.Errorf("%w: facility_id is required", ErrInvalidJob)
	}
	return nil
}

// BookingDate returns the date to book for a run at now.
func (j BookingJob) BookingDate(now time.Time) string {
	if j.Date != "" {
		return j.Date
	}
	return now.AddDate(0, 0, j.DaysAhead).Format("2006-01-02")
}

// JobName returns Name or a name derived from the job's fields.
func (j BookingJob) JobName(username string) string {
	if j.Name != "" {
		return username + "/" + j.Name
	}
	return fmt.Sprintf("%s/%s@%s", username, j.FacilityID, j.Time)
}

func decodeFile(filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.DecodeFile(filename, v); err != nil {
			return fmt.Errorf("error decoding %s: %w", filename, err)
		}
		return nil
	default:
		file, err := os.Open(filename)
		if err != nil {
			return err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(v); err != nil {
			return fmt.Errorf("error decoding %s: %w", filename, err)
		}
		return nil
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
