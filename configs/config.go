package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort      int
	DBHost       string
	DBPort       int
	DBUser       string
	DBPassword   string
	DBName       string
	DBNameTest   string
	RedisHost    string
	RedisPort    int
	JWTSecret    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	// JWT secret wajib diambil dari environment, tidak boleh hardcoded
	secret := os.Getenv("JWT_SECRET")
	if secret == "" && os.Getenv("GO_ENV") != "test" {
		log.Println("JWT_SECRET is empty, sessions will not survive restarts safely")
	}

	return Config{
		AppPort:      envInt("APP_PORT", 3004),
		DBHost:       os.Getenv("DB_HOST"),
		DBPort:       envInt("DB_PORT", 5432),
		DBUser:       os.Getenv("DB_USER"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBName:       os.Getenv("DB_NAME"),
		DBNameTest:   os.Getenv("DB_NAME_TEST"),
		RedisHost:    os.Getenv("REDIS_HOST"),
		RedisPort:    envInt("REDIS_PORT", 6379),
		JWTSecret:    secret,
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
	}
}
