package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"trivial-go/internal/config"
	"trivial-go/pkg/logger"
	"trivial-go/pkg/token"
)

// Auth handlers

// sessionTTL adalah masa berlaku cookie jwt.
const sessionTTL = 60 * time.Minute

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register membuat user baru dalam keadaan belum terverifikasi,
// lalu mengirim kode verifikasi 6 digit lewat email.
func Register(c *fiber.Ctx) error {
	// struct RegisterRequest menerima inputan dari user
	type RegisterRequest struct {
		Name     string `json:"name" validate:"required,max=30"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Validasi dengan validator
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	email := normalizeEmail(req.Email)

	// Hash the password using bcrypt with default cost
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error hashing password",
			"success": false,
			"status":  500,
		})
	}

	// Kode verifikasi dibuat sebelum insert supaya tersimpan
	// dalam satu statement dengan user-nya
	code, err := token.VerificationCode()
	if err != nil {
		logger.ErrorLogger.Error("Error generating verification code", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating verification code",
			"success": false,
			"status":  500,
		})
	}

	// Insert user baru. Email yang sudah terpakai terdeteksi lewat
	// unique violation (23505) dan dikembalikan sebagai validation error.
	var userID int
	err = config.DB.QueryRow(
		"INSERT INTO users (email, password, name, verification_code) VALUES ($1, $2, $3, $4) RETURNING id",
		email, string(hashedPassword), req.Name, code).Scan(&userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				logger.SecurityLogger.Warn("Duplicate email", zap.String("email", email))
				return c.Status(400).JSON(fiber.Map{
					"message": "Email already registered",
					"success": false,
					"status":  400,
				})
			}
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating user",
			"success": false,
			"status":  500,
		})
	}

	// Kegagalan kirim email tidak membatalkan registrasi:
	// kode sudah tersimpan dan bisa dikirim ulang oleh operator
	if err := config.Mailer.SendVerificationCode(email, req.Name, code); err != nil {
		logger.ErrorLogger.Error("Error sending verification email",
			zap.String("email", email), zap.Error(err))
	}

	logger.AuditLogger.Info("User registered successfully", zap.Int("userID", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "User register success",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": userID,
		},
	})
}

// VerifyEmail mencocokkan kode verifikasi. Jika cocok, user
// ditandai terverifikasi dan kodenya dihapus.
func VerifyEmail(c *fiber.Ctx) error {
	type VerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in verify", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during verify", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	email := normalizeEmail(req.Email)

	var userID int
	var storedCode *string
	err := config.DB.QueryRow(
		"SELECT id, verification_code FROM users WHERE email = $1",
		email).Scan(&userID, &storedCode)
	if err != nil {
		logger.SecurityLogger.Warn("User not found during verify", zap.String("email", email))
		return c.Status(404).JSON(fiber.Map{
			"message": "User with this email not found",
			"success": false,
			"status":  404,
		})
	}

	if storedCode == nil || *storedCode != req.Code {
		logger.SecurityLogger.Warn("Invalid verification code", zap.String("email", email))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid code",
			"success": false,
			"status":  400,
		})
	}

	// Set flag verified dan hapus kode dalam satu statement
	_, err = config.DB.Exec(
		"UPDATE users SET is_verified = TRUE, verification_code = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		userID)
	if err != nil {
		logger.ErrorLogger.Error("Error verifying user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error verifying user",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Email verified", zap.Int("userID", userID))
	return c.JSON(fiber.Map{
		"message": "Email verified",
		"success": true,
		"status":  200,
	})
}

// Login memeriksa kredensial lalu memasang cookie jwt ber-masa 60 menit.
// User yang belum verifikasi email tidak boleh login.
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	email := normalizeEmail(req.Email)

	var user struct {
		ID         int
		Email      string
		Password   string
		IsVerified bool
	}
	err := config.DB.QueryRow(
		"SELECT id, email, password, is_verified FROM users WHERE email = $1",
		email).Scan(&user.ID, &user.Email, &user.Password, &user.IsVerified)
	if err != nil {
		logger.SecurityLogger.Warn("User not found", zap.String("email", email))
		return c.Status(404).JSON(fiber.Map{
			"message": "User with this email not found",
			"success": false,
			"status":  404,
		})
	}

	if !user.IsVerified {
		logger.SecurityLogger.Warn("Unverified login attempt", zap.String("email", email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Email not verified",
			"success": false,
			"status":  401,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Invalid password",
			"success": false,
			"status":  401,
		})
	}

	tokenString, err := token.Generate(user.ID, user.Email, config.SecretKey, sessionTTL)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    tokenString,
		Expires:  time.Now().Add(sessionTTL),
		HTTPOnly: true,
	})

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": user.ID,
			"jwt":     tokenString,
		},
	})
}

// Logout menghapus cookie jwt di sisi client.
func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{
		"message": "Logout success",
		"success": true,
		"status":  200,
	})
}

// DeleteUser menghapus akun user yang sedang login beserta
// semua task, claim, dan message miliknya (cascade).
func DeleteUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	_, err := config.DB.Exec("DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting user",
			"success": false,
			"status":  500,
		})
	}

	// Hapus cache profil dan cookie session
	config.RedisClient.Del(config.Ctx, fmt.Sprintf("user:%d", userID))
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	logger.AuditLogger.Info("User deleted successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
		"success": true,
		"status":  200,
	})
}
