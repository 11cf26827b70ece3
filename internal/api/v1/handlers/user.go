package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"trivial-go/internal/config"
	"trivial-go/internal/models"
	"trivial-go/pkg/logger"
)

// User handlers

// fetchProfile mengambil proyeksi profil publik satu user dari database.
// Dipakai oleh GetProfile dan oleh serializer task untuk embed creator.
func fetchProfile(userID int) (models.User, error) {
	var user models.User
	err := config.DB.QueryRow(
		`SELECT id, name, email, rating, image, created_tasks, completed_tasks, about_me, socials,
		        is_verified, created_at, updated_at
		 FROM users WHERE id = $1`,
		userID).Scan(&user.ID, &user.Name, &user.Email, &user.Rating, &user.Image,
		&user.CreatedTasks, &user.CompletedTasks, &user.AboutMe, &user.Socials,
		&user.IsVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return user, err
	}
	if user.Image.Valid {
		user.ImageURL = "/uploads/" + user.Image.String
	}
	return user, nil
}

// invalidateProfileCache membuang entri cache profil user.
// Wajib dipanggil setiap ada mutasi yang menyentuh baris users,
// termasuk counter created_tasks/completed_tasks dan rating.
func invalidateProfileCache(userID int) {
	config.RedisClient.Del(config.Ctx, fmt.Sprintf("user:%d", userID))
}

// GetProfile mengembalikan profil publik user. Endpoint ini publik;
// user yang tidak ada dijawab 404.
func GetProfile(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("user_id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid user ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user ID",
			"success": false,
			"status":  400,
		})
	}

	// Coba ambil data dari cache Redis
	cacheKey := fmt.Sprintf("user:%d", targetID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var user models.User
		if err = json.Unmarshal([]byte(cached), &user); err == nil {
			return c.JSON(fiber.Map{
				"message": "User found (from cache)",
				"success": true,
				"status":  200,
				"data":    user,
			})
		}
	}

	user, err := fetchProfile(targetID)
	if err != nil {
		logger.SecurityLogger.Warn("User not found", zap.Int("user_id", targetID))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	// Simpan data user ke cache Redis selama 1 jam
	userJSON, err := json.Marshal(user)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, userJSON, time.Hour)
	}

	logger.AuditLogger.Info("User found", zap.Int("user_id", targetID))
	return c.JSON(fiber.Map{
		"message": "User found",
		"success": true,
		"status":  200,
		"data":    user,
	})
}

// UpdateProfile melakukan partial update atas name, about_me, dan socials
// milik user yang sedang login.
func UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	// pointer (*) untuk menandakan bahwa field boleh kosong
	type UpdateProfileRequest struct {
		Name    *string         `json:"name" validate:"omitempty,max=30"`
		AboutMe *string         `json:"about_me"`
		Socials *models.Socials `json:"socials"`
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update profile", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during update profile", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Update hanya field yang dikirim
	_, err := config.DB.Exec(`
        UPDATE users
        SET name = COALESCE($1, name),
            about_me = COALESCE($2, about_me),
            socials = COALESCE($3, socials),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $4`,
		req.Name, req.AboutMe, req.Socials, userID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating profile",
			"success": false,
			"status":  500,
		})
	}

	invalidateProfileCache(userID)

	updated, err := fetchProfile(userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated profile",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Profile updated successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "User update success",
		"success": true,
		"status":  200,
		"data":    updated,
	})
}

// SetRating menambah atau mengurangi rating user lain.
// Operasi: 1 = add, 2 = subtract. Hasil selalu di-clamp ke [0, 5]
// di dalam satu statement SQL supaya tidak ada lost update.
func SetRating(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("user_id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid user ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user ID",
			"success": false,
			"status":  400,
		})
	}

	delta, err := c.ParamsInt("rating")
	if err != nil {
		logger.ErrorLogger.Error("Invalid rating", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid rating",
			"success": false,
			"status":  400,
		})
	}

	operation, err := c.ParamsInt("operation")
	if err != nil || (operation != 1 && operation != 2) {
		logger.ErrorLogger.Error("Invalid operation")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid operation",
			"success": false,
			"status":  400,
		})
	}
	if operation == 2 {
		delta = -delta
	}

	var rating int
	err = config.DB.QueryRow(`
        UPDATE users
        SET rating = LEAST(5, GREATEST(0, rating + $1)),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $2
        RETURNING rating`,
		delta, targetID).Scan(&rating)
	if err != nil {
		logger.SecurityLogger.Warn("User not found for rating", zap.Int("user_id", targetID))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	invalidateProfileCache(targetID)

	logger.AuditLogger.Info("Rating updated", zap.Int("user_id", targetID), zap.Int("rating", rating))
	return c.JSON(fiber.Map{
		"message": "Rating updated",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": targetID,
			"rating":  rating,
		},
	})
}
