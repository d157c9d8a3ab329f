package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Mail settings feed the SMTP transport used
// by the email consumer; the OTP TTL bounds the verification window of a
// pending booking (the seat hold lives exactly as long as the code).
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	AppName     string // service name reported on the root endpoint
	AppVersion  string // service version reported on the root endpoint
	FrontendURL string // base URL used in email links

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret    string // secret used to sign admin JWTs
	AccessTTLMin int    // admin access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for admin password hashing

	SMTPHost string // mail transport host
	SMTPPort int    // mail transport port
	SMTPUser string // mail transport username
	SMTPPass string // mail transport password
	MailFrom string // From header on outgoing email

	OTPTTL time.Duration // lifetime of a one-time passcode and the seat hold
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		AppName:     getenv("APP_NAME", "Seat Reservation API"),
		AppVersion:  getenv("APP_VERSION", "1.0.0"),
		FrontendURL: must("FRONTEND_URL"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),

		SMTPHost: must("MAIL_HOST"),
		SMTPPort: mustInt("MAIL_PORT"),
		SMTPUser: must("MAIL_SENDER_EMAIL"),
		SMTPPass: must("MAIL_PASSWORD"),
		MailFrom: must("MAIL_FROM"),

		OTPTTL: minutes("OTP_TTL_MIN", 10),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// minutes reads an optional integer variable and returns it as a duration
// in minutes, falling back to def when unset or invalid.
func minutes(key string, def int) time.Duration {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(def) * time.Minute
}
