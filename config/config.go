package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env          string
	Port         string
	Database     DatabaseConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Redis        RedisConfig
	Twilio       TwilioConfig
	Integrations IntegrationsConfig
	Chatbot      ChatbotConfig
	Energy       EnergyConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
	RunMigrations   bool
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	BcryptCost    int
	SessionSecret string
	FrontendURL   string
	PublicURL     string
	GoogleKey     string
	GoogleSecret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	FromNumber       string
	ReminderSchedule string
	ReminderLeadDays int
	SweepSchedule    string
}

// Enabled reports whether SMS credentials are present.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

type IntegrationsConfig struct {
	HTTPTimeout       time.Duration
	EskomToken        string
	EskomBaseURL      string
	DefaultAreaID     string
	TomorrowAPIKey    string
	TomorrowBaseURL   string
	Location          string
	AssemblyAIKey     string
	AssemblyAIBaseURL string
	AssemblyAIPoll    time.Duration
	HuggingFaceToken  string
	HuggingFaceURL    string
}

type ChatbotConfig struct {
	IntentsFile string
}

type EnergyConfig struct {
	UsageCSV string
}

// IsDev reports whether the process runs with development defaults.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func Load() (*Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	retryDelay, err := getEnvDuration("DB_RETRY_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	tokenTTL, err := getEnvDuration("JWT_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvDuration("REDIS_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	transcriptPoll, err := getEnvDuration("ASSEMBLYAI_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:  getEnvString("APP_ENV", "production"),
		Port: getEnvString("PORT", "8080"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DB_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			ConnectRetries:  getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryDelay:      retryDelay,
			RunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      tokenTTL,
			BcryptCost:    getEnvInt("BCRYPT_COST", 12),
			SessionSecret: getEnvString("SESSION_SECRET", os.Getenv("JWT_SECRET")),
			FrontendURL:   strings.TrimRight(getEnvString("FRONTEND_URL", "http://localhost:3000"), "/"),
			PublicURL:     strings.TrimRight(getEnvString("PUBLIC_URL", "http://localhost:8080"), "/"),
			GoogleKey:     os.Getenv("GOOGLE_KEY"),
			GoogleSecret:  os.Getenv("GOOGLE_SECRET"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      cacheTTL,
		},
		Twilio: TwilioConfig{
			AccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:       os.Getenv("TWILIO_PHONE_NUMBER"),
			ReminderSchedule: getEnvString("REMINDER_SCHEDULE", "0 9 * * *"),
			ReminderLeadDays: getEnvInt("REMINDER_LEAD_DAYS", 3),
			SweepSchedule:    getEnvString("SWEEP_SCHEDULE", "30 0 * * *"),
		},
		Integrations: IntegrationsConfig{
			HTTPTimeout:       httpTimeout,
			EskomToken:        os.Getenv("ESKOM_TOKEN"),
			EskomBaseURL:      getEnvString("ESKOM_BASE_URL", "https://developer.sepush.co.za/business/2.0"),
			DefaultAreaID:     os.Getenv("AREA_ID"),
			TomorrowAPIKey:    os.Getenv("TOMORROW_IO_API_KEY"),
			TomorrowBaseURL:   getEnvString("TOMORROW_BASE_URL", "https://api.tomorrow.io/v4"),
			Location:          getEnvString("LOCATION", "Johannesburg"),
			AssemblyAIKey:     os.Getenv("ASSEMBLYAI_API_KEY"),
			AssemblyAIBaseURL: getEnvString("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"),
			AssemblyAIPoll:    transcriptPoll,
			HuggingFaceToken:  os.Getenv("HUGGINGFACE_TOKEN"),
			HuggingFaceURL:    getEnvString("HUGGINGFACE_URL", "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"),
		},
		Chatbot: ChatbotConfig{
			IntentsFile: os.Getenv("CHATBOT_INTENTS_FILE"),
		},
		Energy: EnergyConfig{
			UsageCSV: getEnvString("ENERGY_USAGE_CSV", "energy_usage.csv"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("DB_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
