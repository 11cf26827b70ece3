package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"trivial-go/internal/config"
	"trivial-go/pkg/logger"
)

// File handling untuk foto profil

// validateImage memastikan file adalah gambar dengan ukuran wajar.
func validateImage(file *multipart.FileHeader) error {
	// Maksimal 5MB
	if file.Size > 5<<20 {
		return fiber.NewError(fiber.StatusBadRequest, "File size exceeds the limit of 5MB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be an image")
	}

	return nil
}

// GetFile menyajikan file yang pernah diunggah.
func GetFile(c *fiber.Ctx) error {
	filename := c.Params("filename")
	filePath := path.Join("uploads", filename)
	return c.SendFile(filePath)
}

// UploadProfileImage menyimpan foto profil user yang login ke folder
// uploads dan mencatat nama filenya di kolom users.image.
func UploadProfileImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	uploadDir := "uploads"
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		if err := os.Mkdir(uploadDir, os.ModePerm); err != nil {
			logger.ErrorLogger.Error("Error creating upload directory", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error creating upload directory",
				"success": false,
				"status":  500,
			})
		}
	}

	// Ambil file dari form-data
	file, err := c.FormFile("image")
	if err != nil {
		logger.ErrorLogger.Error("Error uploading image", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Error uploading image",
			"success": false,
			"status":  400,
		})
	}

	if err := validateImage(file); err != nil {
		logger.ErrorLogger.Error("Invalid image", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Nama file dibuat unik per user supaya tidak saling menimpa
	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("profile_%d_%d%s", userID, time.Now().UnixNano(), ext)
	if err := c.SaveFile(file, path.Join(uploadDir, filename)); err != nil {
		logger.ErrorLogger.Error("Error saving image", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error saving image",
			"success": false,
			"status":  500,
		})
	}

	_, err = config.DB.Exec(
		"UPDATE users SET image = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		filename, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error updating profile image", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating profile image",
			"success": false,
			"status":  500,
		})
	}

	invalidateProfileCache(userID)

	logger.AuditLogger.Info("Profile image updated", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Profile image updated",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"image": "/uploads/" + filename,
		},
	})
}
