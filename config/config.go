package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Secrets (SMTP password, admin JWT secret, completion API key) have no defaults in code.
type AppConfig struct {
	AppPort string
	// AppEnv "production" suppresses internal error detail in responses.
	AppEnv         string
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Global token bucket in front of every API route
	GlobalRateLimitPerMinute int
	// Fixed-window submission limits per form
	ContactMaxAttempts int
	ContactWindowSec   int
	ReviewMaxAttempts  int
	ReviewWindowSec    int
	// Helpful and flag actions on existing reviews
	ReviewActionMaxAttempts int
	ReviewActionWindowSec   int
	ChatMaxAttempts         int
	ChatWindowSec           int
	// Storage backends
	RateLimitBackend  string // memory | redis
	RateLimitSweepSec int
	ReviewBackend     string // memory | mysql
	ReviewCacheTTLSec int
	// MySQL for the review repository
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for rate limiting / caching / captcha
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// SMTP for forwarding submissions
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	NotifyTo     string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Moderation
	ModerationListsPath string
	CaptchaMode         string // placeholder | captcha
	CaptchaSentinel     string
	AdminJWTSecret      string
	// Text completion service used by chat
	CompletionURL        string
	CompletionAPIKey     string
	CompletionModel      string
	CompletionTimeoutSec int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("config/config.json ignored: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests use it to avoid touching the environment.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// IsProduction reports whether internal error detail must be hidden from clients.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		switch t := m[key].(type) {
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.AppEnv = getString(app, "AppEnv")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
	}

	if rl, ok := raw["ratelimit"].(map[string]any); ok {
		out.GlobalRateLimitPerMinute = getInt(rl, "GlobalPerMinute")
		out.ContactMaxAttempts = getInt(rl, "ContactMaxAttempts")
		out.ContactWindowSec = getInt(rl, "ContactWindowSec")
		out.ReviewMaxAttempts = getInt(rl, "ReviewMaxAttempts")
		out.ReviewWindowSec = getInt(rl, "ReviewWindowSec")
		out.ReviewActionMaxAttempts = getInt(rl, "ReviewActionMaxAttempts")
		out.ReviewActionWindowSec = getInt(rl, "ReviewActionWindowSec")
		out.ChatMaxAttempts = getInt(rl, "ChatMaxAttempts")
		out.ChatWindowSec = getInt(rl, "ChatWindowSec")
		out.RateLimitBackend = getString(rl, "Backend")
		out.RateLimitSweepSec = getInt(rl, "SweepSec")
	}

	if rv, ok := raw["reviews"].(map[string]any); ok {
		out.ReviewBackend = getString(rv, "Backend")
		out.ReviewCacheTTLSec = getInt(rv, "CacheTTLSec")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTLS = getBool(sm, "SMTPTLS")
		out.NotifyTo = getString(sm, "NotifyTo")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if md, ok := raw["moderation"].(map[string]any); ok {
		out.ModerationListsPath = getString(md, "ListsPath")
		out.CaptchaMode = getString(md, "CaptchaMode")
		out.CaptchaSentinel = getString(md, "CaptchaSentinel")
		out.AdminJWTSecret = getString(md, "AdminJWTSecret")
	}

	if cp, ok := raw["completion"].(map[string]any); ok {
		out.CompletionURL = getString(cp, "URL")
		out.CompletionAPIKey = getString(cp, "APIKey")
		out.CompletionModel = getString(cp, "Model")
		out.CompletionTimeoutSec = getInt(cp, "TimeoutSec")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppEnv == "" {
		c.AppEnv = "production"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.GlobalRateLimitPerMinute == 0 {
		c.GlobalRateLimitPerMinute = 120
	}
	if c.ContactMaxAttempts == 0 {
		c.ContactMaxAttempts = 5
	}
	if c.ContactWindowSec == 0 {
		c.ContactWindowSec = 300
	}
	if c.ReviewMaxAttempts == 0 {
		c.ReviewMaxAttempts = 3
	}
	if c.ReviewWindowSec == 0 {
		c.ReviewWindowSec = 3600
	}
	if c.ReviewActionMaxAttempts == 0 {
		c.ReviewActionMaxAttempts = 10
	}
	if c.ReviewActionWindowSec == 0 {
		c.ReviewActionWindowSec = 600
	}
	if c.ChatMaxAttempts == 0 {
		c.ChatMaxAttempts = 20
	}
	if c.ChatWindowSec == 0 {
		c.ChatWindowSec = 60
	}
	if c.RateLimitBackend == "" {
		c.RateLimitBackend = "memory"
	}
	if c.RateLimitSweepSec == 0 {
		c.RateLimitSweepSec = 60
	}
	if c.ReviewBackend == "" {
		c.ReviewBackend = "memory"
	}
	if c.ReviewCacheTTLSec == 0 {
		c.ReviewCacheTTLSec = 300
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "storefront"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CaptchaMode == "" {
		c.CaptchaMode = "placeholder"
	}
	if c.CaptchaSentinel == "" {
		c.CaptchaSentinel = "test-token"
	}
	if c.CompletionTimeoutSec == 0 {
		c.CompletionTimeoutSec = 30
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strs := map[string]*string{
		"APP_PORT":              &c.AppPort,
		"APP_ENV":               &c.AppEnv,
		"GIN_MODE":              &c.GinMode,
		"GIN_PATH":              &c.GinPath,
		"RATE_LIMIT_BACKEND":    &c.RateLimitBackend,
		"REVIEW_BACKEND":        &c.ReviewBackend,
		"DATABASE_URI":          &c.DatabaseURI,
		"DB_HOST":               &c.DBHost,
		"DB_PORT":               &c.DBPort,
		"DB_USER":               &c.DBUser,
		"DB_PASSWORD":           &c.DBPassword,
		"DB_NAME":               &c.DBName,
		"REDIS_HOST":            &c.RedisHost,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"SMTP_HOST":             &c.SMTPHost,
		"SMTP_USERNAME":         &c.SMTPUsername,
		"SMTP_PASSWORD":         &c.SMTPPassword,
		"SMTP_FROM":             &c.SMTPFrom,
		"SMTP_FROM_NAME":        &c.SMTPFromName,
		"NOTIFY_TO":             &c.NotifyTo,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_PATH":              &c.LogPath,
		"MODERATION_LISTS_PATH": &c.ModerationListsPath,
		"CAPTCHA_MODE":          &c.CaptchaMode,
		"CAPTCHA_SENTINEL":      &c.CaptchaSentinel,
		"ADMIN_JWT_SECRET":      &c.AdminJWTSecret,
		"COMPLETION_URL":        &c.CompletionURL,
		"COMPLETION_API_KEY":    &c.CompletionAPIKey,
		"COMPLETION_MODEL":      &c.CompletionModel,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GLOBAL_RATE_LIMIT_PER_MINUTE": &c.GlobalRateLimitPerMinute,
		"CONTACT_MAX_ATTEMPTS":         &c.ContactMaxAttempts,
		"CONTACT_WINDOW_SEC":           &c.ContactWindowSec,
		"REVIEW_MAX_ATTEMPTS":          &c.ReviewMaxAttempts,
		"REVIEW_WINDOW_SEC":            &c.ReviewWindowSec,
		"REVIEW_ACTION_MAX_ATTEMPTS":   &c.ReviewActionMaxAttempts,
		"REVIEW_ACTION_WINDOW_SEC":     &c.ReviewActionWindowSec,
		"CHAT_MAX_ATTEMPTS":            &c.ChatMaxAttempts,
		"CHAT_WINDOW_SEC":              &c.ChatWindowSec,
		"RATE_LIMIT_SWEEP_SEC":         &c.RateLimitSweepSec,
		"REVIEW_CACHE_TTL_SEC":         &c.ReviewCacheTTLSec,
		"REDIS_PORT":                   &c.RedisPort,
		"REDIS_DB":                     &c.RedisDB,
		"SMTP_PORT":                    &c.SMTPPort,
		"LOG_MAX_SIZE_MB":              &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":              &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":             &c.LogMaxAgeDays,
		"COMPLETION_TIMEOUT_SEC":       &c.CompletionTimeoutSec,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			*dst = mustParseInt(v)
		}
	}

	if v := getEnv("SMTP_TLS", ""); v != "" {
		c.SMTPTLS = v == "true"
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
