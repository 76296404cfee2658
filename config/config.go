// Package config loads application configuration from the environment. A
// .env file is read first when present; every value has a development default.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  string
	Debug bool

	DBDriver string // mysql or sqlite
	DBUser   string
	DBPass   string
	DBHost   string
	DBPort   string
	DBName   string
	DBPath   string // sqlite file, ":memory:" allowed

	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	RedisAddr     string
	RedisChannel  string
	AMQPURL       string
	NotifyQueue   string
	NATSURL       string
	NATSTableSubj string

	Engine Engine
}

// Engine holds the reservation policy knobs.
type Engine struct {
	DefaultDuration      int // minutes
	SlotStep             int // minutes between suggested times
	MaxSuggestions       int
	HighSeverityWithin   int // start delta in minutes
	MediumSeverityWithin int
	ServiceOpen          string // HH:MM
	ServiceClose         string // HH:MM
	HoldWindow           time.Duration
	EvaluationTimeout    time.Duration
	SubscriberQueue      int
	ReminderLead         time.Duration
	ReminderInterval     time.Duration
	Timezone             string
}

// DefaultEngine is the policy used when nothing is configured.
func DefaultEngine() Engine {
	return Engine{
		DefaultDuration:      120,
		SlotStep:             30,
		MaxSuggestions:       5,
		HighSeverityWithin:   30,
		MediumSeverityWithin: 60,
		ServiceOpen:          "11:00",
		ServiceClose:         "23:00",
		HoldWindow:           90 * time.Minute,
		EvaluationTimeout:    3 * time.Second,
		SubscriberQueue:      64,
		ReminderLead:         2 * time.Hour,
		ReminderInterval:     time.Minute,
		Timezone:             "Local",
	}
}

func Load() Config {
	_ = godotenv.Load()

	def := DefaultEngine()
	return Config{
		Env:   envStr("APP_ENV", "dev"),
		Port:  envStr("APP_PORT", "8080"),
		Debug: envBool("APP_DEBUG", false),

		DBDriver: envStr("DB_DRIVER", "mysql"),
		DBUser:   envStr("DB_USER", "root"),
		DBPass:   os.Getenv("DB_PASS"),
		DBHost:   envStr("DB_HOST", "127.0.0.1"),
		DBPort:   envStr("DB_PORT", "3306"),
		DBName:   envStr("DB_NAME", "restaurant"),
		DBPath:   envStr("DB_PATH", "restaurant.db"),

		JWTSecret:      envStr("JWT_SECRET", "dev-secret"),
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", "http://127.0.0.1:5500,http://localhost:5173"),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 50),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisChannel:  envStr("REDIS_EVENTS_CHANNEL", "restaurant.events"),
		AMQPURL:       os.Getenv("RABBITMQ_URL"),
		NotifyQueue:   envStr("RABBITMQ_NOTIFY_QUEUE", "reservation.notifications"),
		NATSURL:       os.Getenv("NATS_URL"),
		NATSTableSubj: envStr("NATS_TABLE_SUBJECT", "tables.status"),

		Engine: Engine{
			DefaultDuration:      envInt("RESERVATION_DEFAULT_DURATION", def.DefaultDuration),
			SlotStep:             envInt("RESERVATION_SLOT_STEP", def.SlotStep),
			MaxSuggestions:       envInt("RESERVATION_MAX_SUGGESTIONS", def.MaxSuggestions),
			HighSeverityWithin:   envInt("CONFLICT_HIGH_WITHIN", def.HighSeverityWithin),
			MediumSeverityWithin: envInt("CONFLICT_MEDIUM_WITHIN", def.MediumSeverityWithin),
			ServiceOpen:          envStr("SERVICE_OPEN", def.ServiceOpen),
			ServiceClose:         envStr("SERVICE_CLOSE", def.ServiceClose),
			HoldWindow:           envDur("TABLE_HOLD_WINDOW", def.HoldWindow),
			EvaluationTimeout:    envDur("EVALUATION_TIMEOUT", def.EvaluationTimeout),
			SubscriberQueue:      envInt("SUBSCRIBER_QUEUE_SIZE", def.SubscriberQueue),
			ReminderLead:         envDur("REMINDER_LEAD", def.ReminderLead),
			ReminderInterval:     envDur("REMINDER_INTERVAL", def.ReminderInterval),
			Timezone:             envStr("RESTAURANT_TZ", def.Timezone),
		},
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (e Engine) Location() *time.Location {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envList(k, d string) []string {
	var out []string
	for _, p := range strings.Split(envStr(k, d), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
