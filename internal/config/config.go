package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	AuthEnabled         bool
	JWTSecret           string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	StorageNamespace    string
	CacheTTL            time.Duration
	CacheSize           int
	UploadRateLimit     int
	RealtimeChannel     string
	StreamKeepAlive     time.Duration
	CORSAllowOrigins    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ACADEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Acadex API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("auth.enabled", true)
	v.SetDefault("storage.namespace", "acadex")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("upload.rate_limit", 30)
	v.SetDefault("realtime.channel", "acadex")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("cors.allow_origins", "*")

	ttl, err := parseDuration(v.GetString("cache.ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	keepAlive, err := parseDuration(v.GetString("stream.keepalive"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		AuthEnabled:         v.GetBool("auth.enabled"),
		JWTSecret:           v.GetString("jwt.secret"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		StorageNamespace:    strings.Trim(v.GetString("storage.namespace"), "/"),
		CacheTTL:            ttl,
		CacheSize:           v.GetInt("cache.size"),
		UploadRateLimit:     v.GetInt("upload.rate_limit"),
		RealtimeChannel:     v.GetString("realtime.channel"),
		StreamKeepAlive:     keepAlive,
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
	}

	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided when auth is enabled")
	}

	if cfg.StorageNamespace == "" {
		cfg.StorageNamespace = "acadex"
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}

	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
