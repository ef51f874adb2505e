package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by GRADESYNC_STORAGE_DRIVER.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	LMS       LMSConfig
	GradeSync GradeSyncConfig
	Mail      MailConfig
	Secrets   SecretsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LMSConfig carries the OAuth client registration and REST endpoint of the external LMS.
type LMSConfig struct {
	Enabled               bool
	ClientID              string
	ClientSecret          string
	RedirectURI           string
	OAuthSite             string
	AuthorizeURL          string
	TokenURL              string
	APIHost               string
	APIVersion            string
	ProductName           string
	SuccessRedirect       string
	HTTPTimeout           time.Duration
	TokenTTL              time.Duration
	CallbackRatePerMinute int
}

// Configured reports whether every value needed to talk to the LMS is present, including the
// redirect URI the login URL must carry.
func (c LMSConfig) Configured() bool {
	return c.Enabled && c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != "" &&
		c.APIHost != "" && c.TokenURL != ""
}

// GradeSyncConfig tunes the asynchronous grade transfer jobs and their artifacts.
type GradeSyncConfig struct {
	WorkerConcurrency int
	QueueSize         int
	StorageDriver     string
	StorageDir        string
	S3                S3Config
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	RunningMarkerTTL  time.Duration
	PublicBaseURL     string
}

type S3Config struct {
	Bucket          string
	Region          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	ForcePathStyle  bool
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SecretsConfig holds key material for values sealed at rest.
type SecretsConfig struct {
	TokenEncryptionKey string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.LMS = LMSConfig{
		Enabled:               v.GetBool("LMS_ENABLED"),
		ClientID:              v.GetString("LMS_CLIENT_ID"),
		ClientSecret:          v.GetString("LMS_CLIENT_SECRET"),
		RedirectURI:           v.GetString("LMS_REDIRECT_URI"),
		OAuthSite:             v.GetString("LMS_OAUTH_SITE"),
		AuthorizeURL:          v.GetString("LMS_OAUTH_AUTHORIZE_URL"),
		TokenURL:              v.GetString("LMS_OAUTH_TOKEN_URL"),
		APIHost:               strings.TrimRight(v.GetString("LMS_API_HOST"), "/"),
		APIVersion:            v.GetString("LMS_API_VERSION"),
		ProductName:           v.GetString("LMS_PRODUCT_NAME"),
		SuccessRedirect:       v.GetString("LMS_SUCCESS_REDIRECT"),
		HTTPTimeout:           parseDuration(v.GetString("LMS_HTTP_TIMEOUT"), 30*time.Second),
		TokenTTL:              parseDuration(v.GetString("LMS_TOKEN_TTL"), 30*time.Minute),
		CallbackRatePerMinute: v.GetInt("LMS_CALLBACK_RATE_PER_MINUTE"),
	}

	workers := v.GetInt("GRADESYNC_WORKER_CONCURRENCY")
	if workers <= 0 {
		workers = 1
	}
	cfg.GradeSync = GradeSyncConfig{
		WorkerConcurrency: workers,
		QueueSize:         v.GetInt("GRADESYNC_QUEUE_SIZE"),
		StorageDriver:     strings.ToLower(v.GetString("GRADESYNC_STORAGE_DRIVER")),
		StorageDir:        v.GetString("GRADESYNC_STORAGE_DIR"),
		S3: S3Config{
			Bucket:          v.GetString("GRADESYNC_S3_BUCKET"),
			Region:          v.GetString("GRADESYNC_S3_REGION"),
			EndpointURL:     v.GetString("GRADESYNC_S3_ENDPOINT_URL"),
			AccessKeyID:     v.GetString("GRADESYNC_S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("GRADESYNC_S3_SECRET_ACCESS_KEY"),
			Prefix:          v.GetString("GRADESYNC_S3_PREFIX"),
			ForcePathStyle:  v.GetBool("GRADESYNC_S3_FORCE_PATH_STYLE"),
		},
		SignedURLSecret:  v.GetString("GRADESYNC_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("GRADESYNC_SIGNED_URL_TTL"), 7*24*time.Hour),
		CleanupInterval:  parseDuration(v.GetString("GRADESYNC_CLEANUP_INTERVAL"), 5*time.Minute),
		RunningMarkerTTL: parseDuration(v.GetString("GRADESYNC_RUNNING_MARKER_TTL"), 2*time.Hour),
		PublicBaseURL:    strings.TrimRight(v.GetString("GRADESYNC_PUBLIC_BASE_URL"), "/"),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("MAIL_FROM"),
	}

	cfg.Secrets = SecretsConfig{
		TokenEncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "assessments")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LMS_ENABLED", false)
	v.SetDefault("LMS_OAUTH_AUTHORIZE_URL", "/oauth2/auth")
	v.SetDefault("LMS_OAUTH_TOKEN_URL", "https://auth.brightspace.com/core/connect/token")
	v.SetDefault("LMS_OAUTH_SITE", "https://auth.brightspace.com")
	v.SetDefault("LMS_API_VERSION", "1.47")
	v.SetDefault("LMS_PRODUCT_NAME", "Assessments")
	v.SetDefault("LMS_SUCCESS_REDIRECT", "/success-close")
	v.SetDefault("LMS_HTTP_TIMEOUT", "30s")
	v.SetDefault("LMS_TOKEN_TTL", "30m")
	v.SetDefault("LMS_CALLBACK_RATE_PER_MINUTE", 30)

	v.SetDefault("GRADESYNC_WORKER_CONCURRENCY", 1)
	v.SetDefault("GRADESYNC_QUEUE_SIZE", 64)
	v.SetDefault("GRADESYNC_STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("GRADESYNC_STORAGE_DIR", "./results")
	v.SetDefault("GRADESYNC_S3_REGION", "us-east-1")
	v.SetDefault("GRADESYNC_S3_FORCE_PATH_STYLE", false)
	v.SetDefault("GRADESYNC_SIGNED_URL_SECRET", "dev_gradesync_secret")
	v.SetDefault("GRADESYNC_SIGNED_URL_TTL", "168h")
	v.SetDefault("GRADESYNC_CLEANUP_INTERVAL", "5m")
	v.SetDefault("GRADESYNC_RUNNING_MARKER_TTL", "2h")
	v.SetDefault("GRADESYNC_PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@localhost")

	v.SetDefault("TOKEN_ENCRYPTION_KEY", "")
}

// isMissingFile tolerates an absent .env when SetConfigFile is used, since viper then
// surfaces the raw fs error instead of ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
