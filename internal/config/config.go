// Package config loads server settings from the environment.
//
// A .env file in the working directory is loaded first when present.
// Invalid values log a warning and keep the default.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Storage backends for player state.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageNone   = "none"
)

type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	DBPath  string
	Storage string

	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool

	PuzzleOffsetHours int
	PuzzleEpoch       string
	PublishLead       time.Duration
	DailySalt         string

	WordsAnswersFile string
	WordsAllowedFile string

	RevealDuration   time.Duration
	LiveNewGameDelay time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment variables")
	}
	return FromEnv()
}

// FromEnv reads the environment without touching .env.
func FromEnv() *Config {
	c := &Config{
		Port:      getEnv("PORT", "5175"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		DBPath:  getEnv("DB_PATH", "./data/katla.db"),
		Storage: strings.ToLower(getEnv("STORAGE", StorageSQLite)),

		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiresDays: getEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "katla_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
		Production:     os.Getenv("NODE_ENV") == "production",

		PuzzleOffsetHours: getEnvInt("PUZZLE_UTC_OFFSET_HOURS", 7),
		PuzzleEpoch:       getEnv("PUZZLE_EPOCH", "2022-01-20"),
		PublishLead:       getEnvDuration("PUZZLE_PUBLISH_LEAD", time.Hour),
		DailySalt:         getEnv("DAILY_SALT", "katla"),

		WordsAnswersFile: os.Getenv("WORDS_ANSWERS_FILE"),
		WordsAllowedFile: os.Getenv("WORDS_ALLOWED_FILE"),

		RevealDuration:   getEnvDuration("REVEAL_DURATION", 2400*time.Millisecond),
		LiveNewGameDelay: getEnvDuration("LIVE_NEW_GAME_DELAY", 5*time.Second),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
	switch c.Storage {
	case StorageSQLite, StorageMemory, StorageNone:
	default:
		log.Warn().Str("storage", c.Storage).Msg("unknown STORAGE, using sqlite")
		c.Storage = StorageSQLite
	}
	return c
}

// SetupLogger configures the global zerolog logger.
func (c *Config) SetupLogger() {
	if c.LogPretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warn().Str("level", c.LogLevel).Msg("invalid LOG_LEVEL, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// JWTTTL is the lifetime of session cookies and tokens.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Int("default", fallback).Msg("invalid int, using default")
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Float64("default", fallback).Msg("invalid float, using default")
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Bool("default", fallback).Msg("invalid bool, using default")
		return fallback
	}
	return b
}
