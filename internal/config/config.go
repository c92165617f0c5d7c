package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Config is built once at startup and never mutated afterwards. Every
// consumer receives it explicitly; there is no ambient global lookup.
type Config struct {
	ServerPort int
	LogLevel   string

	DatabaseURL string

	SecretKey        []byte
	AccessExpireMin  int
	RefreshExpireDay int
	JWTLeeway        time.Duration
	BcryptCost       int

	ESURL      string
	ESUser     string
	ESPassword string

	KafkaAddress string

	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServerPort: envIntDefault("SERVER_PORT", 8080),
		LogLevel:   envDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SecretKey:        []byte(os.Getenv("SECRET_KEY")),
		AccessExpireMin:  envIntDefault("ACCESS_EXPIRE_MIN", 0),
		RefreshExpireDay: envIntDefault("REFRESH_EXPIRE_DAYS", 0),
		JWTLeeway:        time.Duration(envIntDefault("JWT_LEEWAY_SEC", 0)) * time.Second,
		BcryptCost:       envIntDefault("BCRYPT_COST", 10),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("SECRET_KEY must be set")
	}
	if cfg.AccessExpireMin <= 0 {
		return nil, fmt.Errorf("ACCESS_EXPIRE_MIN must be set")
	}
	if cfg.RefreshExpireDay <= 0 {
		return nil, fmt.Errorf("REFRESH_EXPIRE_DAYS must be set")
	}

	return cfg, nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessExpireMin) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpireDay) * 24 * time.Hour
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
