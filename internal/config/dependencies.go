package config

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"trivial-go/pkg/mailer"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi
	DB          *sql.DB
	SecretKey   []byte // diisi dari JWT_SECRET saat startup
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
	Mailer      *mailer.Mailer
)
