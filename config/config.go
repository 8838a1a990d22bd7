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
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort     string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// CORS
	AllowedOrigins []string
	// Rate limiting
	RateLimitPerMinute int
	// Redis for session carts and caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Attachment upload surface
	UploadEnabled     bool
	AllowedExtensions []string
	AllowedProductIDs []uint
	// Empty list or a "*" entry means every category is eligible.
	AllowedCategories []string
	MaxUploadSizeMB   int
	StorageRoot       string
	PublicBaseURL     string
	// Anti-forgery form tokens
	FormTokenSecret     string
	FormTokenTTLMinutes int
	// Session carts
	CartSessionTTLHours int
	// Orphaned upload cleanup
	OrphanTTLMinutes       int
	CleanerIntervalMinutes int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	resolveStorageRoot(&cfg)

	if cfg.FormTokenSecret == "" {
		log.Fatal("FORM_TOKEN_SECRET must be set in environment variables")
	}

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

// SetForTest replaces the cached configuration. Test helper only.
func SetForTest(c AppConfig) {
	cfg = c
	loaded = true
}

type jsonConfig struct {
	AppPort                string   `json:"app_port"`
	DatabaseURI            string   `json:"database_uri"`
	DBHost                 string   `json:"db_host"`
	DBPort                 string   `json:"db_port"`
	DBUser                 string   `json:"db_user"`
	DBPassword             string   `json:"db_password"`
	DBName                 string   `json:"db_name"`
	GinMode                string   `json:"gin_mode"`
	GinPath                string   `json:"gin_path"`
	AllowedOrigins         []string `json:"allowed_origins"`
	RateLimitPerMinute     int      `json:"rate_limit_per_minute"`
	RedisHost              string   `json:"redis_host"`
	RedisPort              int      `json:"redis_port"`
	RedisDB                int      `json:"redis_db"`
	RedisPassword          string   `json:"redis_password"`
	LogLevel               string   `json:"log_level"`
	LogPath                string   `json:"log_path"`
	LogMaxSizeMB           int      `json:"log_max_size_mb"`
	LogMaxBackups          int      `json:"log_max_backups"`
	LogMaxAgeDays          int      `json:"log_max_age_days"`
	LogCompress            *bool    `json:"log_compress"`
	UploadEnabled          *bool    `json:"upload_enabled"`
	AllowedExtensions      []string `json:"allowed_extensions"`
	AllowedProductIDs      []uint   `json:"allowed_product_ids"`
	AllowedCategories      []string `json:"allowed_categories"`
	MaxUploadSizeMB        int      `json:"max_upload_size_mb"`
	StorageRoot            string   `json:"storage_root"`
	PublicBaseURL          string   `json:"public_base_url"`
	FormTokenSecret        string   `json:"form_token_secret"`
	FormTokenTTLMinutes    int      `json:"form_token_ttl_minutes"`
	CartSessionTTLHours    int      `json:"cart_session_ttl_hours"`
	OrphanTTLMinutes       int      `json:"orphan_ttl_minutes"`
	CleanerIntervalMinutes int      `json:"cleaner_interval_minutes"`
}

func loadJSONConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		log.Printf("config: failed to parse %s: %v", path, err)
		return err
	}

	if jc.AppPort != "" {
		out.AppPort = jc.AppPort
	}
	if jc.DatabaseURI != "" {
		out.DatabaseURI = jc.DatabaseURI
	}
	if jc.DBHost != "" {
		out.DBHost = jc.DBHost
	}
	if jc.DBPort != "" {
		out.DBPort = jc.DBPort
	}
	if jc.DBUser != "" {
		out.DBUser = jc.DBUser
	}
	if jc.DBPassword != "" {
		out.DBPassword = jc.DBPassword
	}
	if jc.DBName != "" {
		out.DBName = jc.DBName
	}
	if jc.GinMode != "" {
		out.GinMode = jc.GinMode
	}
	if jc.GinPath != "" {
		out.GinPath = jc.GinPath
	}
	if len(jc.AllowedOrigins) > 0 {
		out.AllowedOrigins = jc.AllowedOrigins
	}
	if jc.RateLimitPerMinute > 0 {
		out.RateLimitPerMinute = jc.RateLimitPerMinute
	}
	if jc.RedisHost != "" {
		out.RedisHost = jc.RedisHost
	}
	if jc.RedisPort > 0 {
		out.RedisPort = jc.RedisPort
	}
	if jc.RedisDB > 0 {
		out.RedisDB = jc.RedisDB
	}
	if jc.RedisPassword != "" {
		out.RedisPassword = jc.RedisPassword
	}
	if jc.LogLevel != "" {
		out.LogLevel = jc.LogLevel
	}
	if jc.LogPath != "" {
		out.LogPath = jc.LogPath
	}
	if jc.LogMaxSizeMB > 0 {
		out.LogMaxSizeMB = jc.LogMaxSizeMB
	}
	if jc.LogMaxBackups > 0 {
		out.LogMaxBackups = jc.LogMaxBackups
	}
	if jc.LogMaxAgeDays > 0 {
		out.LogMaxAgeDays = jc.LogMaxAgeDays
	}
	if jc.LogCompress != nil {
		out.LogCompress = *jc.LogCompress
	}
	if jc.UploadEnabled != nil {
		out.UploadEnabled = *jc.UploadEnabled
	}
	if len(jc.AllowedExtensions) > 0 {
		out.AllowedExtensions = jc.AllowedExtensions
	}
	if len(jc.AllowedProductIDs) > 0 {
		out.AllowedProductIDs = jc.AllowedProductIDs
	}
	if len(jc.AllowedCategories) > 0 {
		out.AllowedCategories = jc.AllowedCategories
	}
	if jc.MaxUploadSizeMB > 0 {
		out.MaxUploadSizeMB = jc.MaxUploadSizeMB
	}
	if jc.StorageRoot != "" {
		out.StorageRoot = jc.StorageRoot
	}
	if jc.PublicBaseURL != "" {
		out.PublicBaseURL = jc.PublicBaseURL
	}
	if jc.FormTokenSecret != "" {
		out.FormTokenSecret = jc.FormTokenSecret
	}
	if jc.FormTokenTTLMinutes > 0 {
		out.FormTokenTTLMinutes = jc.FormTokenTTLMinutes
	}
	if jc.CartSessionTTLHours > 0 {
		out.CartSessionTTLHours = jc.CartSessionTTLHours
	}
	if jc.OrphanTTLMinutes > 0 {
		out.OrphanTTLMinutes = jc.OrphanTTLMinutes
	}
	if jc.CleanerIntervalMinutes > 0 {
		out.CleanerIntervalMinutes = jc.CleanerIntervalMinutes
	}
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "cartpix"
	}
	if c.DBName == "" {
		c.DBName = "cartpix"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 60
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort <= 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups <= 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays <= 0 {
		c.LogMaxAgeDays = 7
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	if len(c.AllowedCategories) == 0 {
		c.AllowedCategories = []string{"*"}
	}
	if c.MaxUploadSizeMB <= 0 {
		c.MaxUploadSizeMB = 10
	}
	if c.StorageRoot == "" {
		c.StorageRoot = filepath.Join(".", "static", "attachments")
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "/static/attachments"
	}
	if c.FormTokenTTLMinutes <= 0 {
		c.FormTokenTTLMinutes = 30
	}
	if c.CartSessionTTLHours <= 0 {
		c.CartSessionTTLHours = 72
	}
	if c.OrphanTTLMinutes <= 0 {
		c.OrphanTTLMinutes = 24 * 60
	}
	if c.CleanerIntervalMinutes <= 0 {
		c.CleanerIntervalMinutes = 10
	}
	// UploadEnabled deliberately defaults to false; the plugin must be switched on.
}

// resolveStorageRoot pins the storage root to an absolute path so attachment
// records carry paths that stay valid regardless of the working directory.
func resolveStorageRoot(c *AppConfig) {
	if abs, err := filepath.Abs(c.StorageRoot); err == nil {
		c.StorageRoot = abs
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_PATH", c.GinPath)
	c.AllowedOrigins = readListEnv("ALLOWED_ORIGINS", c.AllowedOrigins)
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = parseBool(v)
	}
	if v := os.Getenv("UPLOAD_ENABLED"); v != "" {
		c.UploadEnabled = parseBool(v)
	}
	c.AllowedExtensions = readListEnv("ALLOWED_EXTENSIONS", c.AllowedExtensions)
	if v := os.Getenv("ALLOWED_PRODUCT_IDS"); v != "" {
		c.AllowedProductIDs = parseUintList(v)
	}
	c.AllowedCategories = readListEnv("ALLOWED_CATEGORIES", c.AllowedCategories)
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		c.MaxUploadSizeMB = mustParseInt(v)
	}
	c.StorageRoot = getEnv("STORAGE_ROOT", c.StorageRoot)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.FormTokenSecret = getEnv("FORM_TOKEN_SECRET", c.FormTokenSecret)
	if v := os.Getenv("FORM_TOKEN_TTL_MINUTES"); v != "" {
		c.FormTokenTTLMinutes = mustParseInt(v)
	}
	if v := os.Getenv("CART_SESSION_TTL_HOURS"); v != "" {
		c.CartSessionTTLHours = mustParseInt(v)
	}
	if v := os.Getenv("ORPHAN_TTL_MINUTES"); v != "" {
		c.OrphanTTLMinutes = mustParseInt(v)
	}
	if v := os.Getenv("CLEANER_INTERVAL_MINUTES"); v != "" {
		c.CleanerIntervalMinutes = mustParseInt(v)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustParseInt(val string) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %q in environment", val)
	}
	return n
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func readListEnv(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaults
	}
	return splitAndTrim(raw)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseUintList(raw string) []uint {
	var out []uint
	for _, p := range splitAndTrim(raw) {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			log.Fatalf("invalid product id %q in environment", p)
		}
		out = append(out, uint(n))
	}
	return out
}
