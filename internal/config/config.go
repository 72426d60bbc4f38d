package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	// zero falls back to the db package defaults
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	JWTSecret string

	// SequenceBackend is "db" (counter row in the creation tx) or "redis".
	SequenceBackend string

	KafkaBrokers []string
	KafkaTopic   string

	StorageDir         string
	MaxUploadBytes     int64
	CertificateBaseURL string

	DispatchWorkers     int
	DispatchJobTimeout  time.Duration
	DispatchMaxAttempts int
	DispatchRetryBase   time.Duration
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, seeded from .env when one exists.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "kyc"),
		MySQLUser: getenv("MYSQL_USER", "kyc"),
		MySQLPass: getenv("MYSQL_PASS", "kyc"),

		DBMaxOpenConns: getint("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns: getint("DB_MAX_IDLE_CONNS", 0),
		DBConnMaxLife:  getduration("DB_CONN_MAX_LIFETIME", 0),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		SequenceBackend: strings.ToLower(getenv("SEQUENCE_BACKEND", "db")),

		KafkaTopic: getenv("KAFKA_TOPIC", "kyc.events"),

		StorageDir:         getenv("STORAGE_DIR", "./uploads"),
		MaxUploadBytes:     int64(getint("MAX_UPLOAD_BYTES", 10<<20)),
		CertificateBaseURL: strings.TrimRight(getenv("CERTIFICATE_BASE_URL", "http://localhost:8080"), "/"),

		DispatchWorkers:     getint("DISPATCH_WORKERS", 8),
		DispatchJobTimeout:  getduration("DISPATCH_JOB_TIMEOUT", 5*time.Second),
		DispatchMaxAttempts: getint("DISPATCH_MAX_ATTEMPTS", 5),
		DispatchRetryBase:   getduration("DISPATCH_RETRY_BASE", time.Second),
	}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			c.KafkaBrokers = append(c.KafkaBrokers, b)
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.SequenceBackend != "db" && c.SequenceBackend != "redis" {
		return fmt.Errorf("invalid SEQUENCE_BACKEND %q (want db or redis)", c.SequenceBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.DispatchWorkers < 1 || c.DispatchMaxAttempts < 1 {
		return errors.New("DISPATCH_WORKERS and DISPATCH_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
