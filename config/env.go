package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	defaultMongoURI   = "mongodb://localhost:27017"
	defaultMongoDB    = "charvi"
	defaultRedisAddr  = "localhost:6379"
	defaultJWTSecret  = "change-me-in-production"
	defaultAppPort    = "8080"
	defaultGRPCPort   = "9090"
	defaultAppEnv     = "local"
	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o-mini"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json and .env once. Later calls return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"MONGO_URI":    defaultMongoURI,
		"MONGO_DB":     defaultMongoDB,
		"REDIS_ADDR":   defaultRedisAddr,
		"JWT_SECRET":   defaultJWTSecret,
		"APP_PORT":     defaultAppPort,
		"GRPC_PORT":    defaultGRPCPort,
		"APP_ENV":      defaultAppEnv,
		"LLM_BASE_URL": defaultLLMBaseURL,
		"LLM_MODEL":    defaultLLMModel,
	}
}

// ── App ──────────────────────────────────────────────────────────────────────

func AppPort() string  { _ = Load(); return get("APP_PORT", defaultAppPort) }
func GRPCPort() string { _ = Load(); return get("GRPC_PORT", defaultGRPCPort) }
func AppEnv() string   { _ = Load(); return get("APP_ENV", defaultAppEnv) }

// IsProduction reports whether the app runs in a production-like environment.
// Upstream error detail is never attached to API responses when this is true.
func IsProduction() bool {
	env := AppEnv()
	return env == "production" || env == "prod"
}

func JWTSecret() string { _ = Load(); return get("JWT_SECRET", defaultJWTSecret) }

// ── Mongo ────────────────────────────────────────────────────────────────────

func MongoURI() string      { _ = Load(); return get("MONGO_URI", defaultMongoURI) }
func MongoDatabase() string { _ = Load(); return get("MONGO_DB", defaultMongoDB) }

// ── Redis ────────────────────────────────────────────────────────────────────

func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

// ── Payment gateway ──────────────────────────────────────────────────────────

func PaymentKeyID() string     { _ = Load(); return get("PAYMENT_KEY_ID", "") }
func PaymentKeySecret() string { _ = Load(); return get("PAYMENT_KEY_SECRET", "") }
func PaymentBaseURL() string {
	_ = Load()
	return get("PAYMENT_BASE_URL", "https://api.razorpay.com/v1")
}

// ── LLM classifier ───────────────────────────────────────────────────────────

func LLMAPIKey() string  { _ = Load(); return get("LLM_API_KEY", "") }
func LLMBaseURL() string { _ = Load(); return get("LLM_BASE_URL", defaultLLMBaseURL) }
func LLMModel() string   { _ = Load(); return get("LLM_MODEL", defaultLLMModel) }

// ── Mail ─────────────────────────────────────────────────────────────────────

func MailFrom() string   { _ = Load(); return get("MAIL_FROM", "orders@charvi.shop") }
func AdminEmail() string { _ = Load(); return get("ADMIN_EMAIL", "") }

// ── Ops alerts ───────────────────────────────────────────────────────────────

func SlackWebhookURL() string { _ = Load(); return get("SLACK_WEBHOOK_URL", "") }

// LogToMongo enables the async Mongo log sink alongside stdout.
func LogToMongo() bool { _ = Load(); return get("LOG_MONGO", "") == "true" }

// CORSOrigins lists the storefront origins allowed to call the API.
func CORSOrigins() []string {
	_ = Load()
	raw := get("CORS_ORIGINS", "*")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string   { _ = Load(); return get("STORAGE_DISK", "local") }
func StorageLocalRoot() string { _ = Load(); return get("STORAGE_LOCAL_ROOT", "storage") }
func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:8080/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Loading internals ────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		s, ok := val.(string)
		if !ok {
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}
