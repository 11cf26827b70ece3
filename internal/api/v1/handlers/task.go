package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trivial-go/internal/config"
	"trivial-go/internal/models"
	"trivial-go/pkg/logger"
)

// Task handlers

// taskColumns mengambil task beserta profil creator-nya dalam satu join.
// is_completed dihitung saat baca: task yang sudah lewat expires_at
// dianggap selesai tanpa perlu ada job yang menulis flag-nya.
const taskColumns = `
	t.id, t.title, t.description,
	(t.is_completed OR t.expires_at <= NOW()) AS is_completed,
	t.category, t.price, t.created_at, t.expires_at, t.creator_id,
	u.id, u.name, u.email, u.rating, u.image,
	u.created_tasks, u.completed_tasks, u.about_me, u.socials,
	u.is_verified, u.created_at, u.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var task models.Task
	var creator models.User
	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.IsCompleted,
		&task.Category, &task.Price, &task.CreatedAt, &task.ExpiresAt, &task.CreatorID,
		&creator.ID, &creator.Name, &creator.Email, &creator.Rating, &creator.Image,
		&creator.CreatedTasks, &creator.CompletedTasks, &creator.AboutMe, &creator.Socials,
		&creator.IsVerified, &creator.CreatedAt, &creator.UpdatedAt)
	if err != nil {
		return task, err
	}
	if creator.Image.Valid {
		creator.ImageURL = "/uploads/" + creator.Image.String
	}
	task.Creator = &creator
	return task, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListMyTasks mengembalikan semua task milik user yang login, terbaru dulu.
func ListMyTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	rows, err := config.DB.Query(`
		SELECT `+taskColumns+`
		FROM created_tasks t JOIN users u ON u.id = t.creator_id
		WHERE t.creator_id = $1
		ORDER BY t.created_at DESC`, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}

	tasks, err := collectTasks(rows)
	if err != nil {
		logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error scanning tasks",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Tasks fetched successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// CreateTask membuat task baru milik user yang login. Insert task
// dan kenaikan counter created_tasks berjalan dalam satu transaksi.
func CreateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	// struct TaskRequest menerima inputan dari user.
	// price dan expires_at diterima sebagai string lalu diparse manual
	// supaya input yang tidak valid bisa dijawab 400, bukan 500.
	type TaskRequest struct {
		Title       string `json:"title" validate:"required,max=100"`
		Description string `json:"description" validate:"required"`
		Category    string `json:"category" validate:"required,oneof=web text video image design programming other"`
		Price       string `json:"price" validate:"required"`
		ExpiresAt   string `json:"expires_at" validate:"required"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() || price.Exponent() < -2 {
		logger.ErrorLogger.Error("Invalid price in create task", zap.String("price", req.Price))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid price",
			"success": false,
			"status":  400,
		})
	}

	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		logger.ErrorLogger.Error("Invalid expires_at in create task", zap.String("expires_at", req.ExpiresAt))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid expires_at",
			"success": false,
			"status":  400,
		})
	}

	// Insert task + counter creator dalam satu transaksi
	tx, err := config.DB.Begin()
	if err != nil {
		logger.ErrorLogger.Error("Error starting transaction", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}
	defer tx.Rollback()

	var taskID int
	err = tx.QueryRow(
		"INSERT INTO created_tasks (creator_id, title, description, category, price, expires_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		userID, req.Title, req.Description, req.Category, price, expiresAt,
	).Scan(&taskID)
	if err == nil {
		_, err = tx.Exec("UPDATE users SET created_tasks = created_tasks + 1 WHERE id = $1", userID)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}

	// Counter di profil berubah, buang cache-nya
	invalidateProfileCache(userID)

	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created success",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": taskID,
		},
	})
}

// DeleteMyTask menghapus task milik user yang login. task_id boleh
// dikirim lewat body maupun query string. Kepemilikan ditegakkan
// lewat filter creator_id pada query, bukan pemeriksaan terpisah.
func DeleteMyTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	type DeleteRequest struct {
		TaskID int `json:"task_id"`
	}
	var req DeleteRequest
	_ = c.BodyParser(&req)
	if req.TaskID == 0 {
		req.TaskID = c.QueryInt("task_id")
	}
	if req.TaskID == 0 {
		logger.ErrorLogger.Error("Missing task_id in delete task")
		return c.Status(400).JSON(fiber.Map{
			"message": "Missing task_id",
			"success": false,
			"status":  400,
		})
	}

	res, err := config.DB.Exec(
		"DELETE FROM created_tasks WHERE id = $1 AND creator_id = $2",
		req.TaskID, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
			"success": false,
			"status":  500,
		})
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.SecurityLogger.Warn("Task not found for delete",
			zap.Int("task_id", req.TaskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", req.TaskID))
	return c.SendStatus(204)
}

// ListAllTasks mengembalikan semua task, terbaru dulu, dengan filter
// kategori opsional. Nilai "all" (atau kategori tak dikenal) berarti
// tanpa filter.
func ListAllTasks(c *fiber.Ctx) error {
	category := c.Query("category")

	var rows *sql.Rows
	var err error
	if models.TaskCategories[category] {
		rows, err = config.DB.Query(`
			SELECT `+taskColumns+`
			FROM created_tasks t JOIN users u ON u.id = t.creator_id
			WHERE t.category = $1
			ORDER BY t.created_at DESC`, category)
	} else {
		rows, err = config.DB.Query(`
			SELECT ` + taskColumns + `
			FROM created_tasks t JOIN users u ON u.id = t.creator_id
			ORDER BY t.created_at DESC`)
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}

	tasks, err := collectTasks(rows)
	if err != nil {
		logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error scanning tasks",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Tasks fetched successfully")
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// GetTask mengembalikan detail satu task beserta profil creator-nya.
func GetTask(c *fiber.Ctx) error {
	taskID, err := c.ParamsInt("task_id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	task, err := scanTask(config.DB.QueryRow(`
		SELECT `+taskColumns+`
		FROM created_tasks t JOIN users u ON u.id = t.creator_id
		WHERE t.id = $1`, taskID))
	if err != nil {
		logger.ErrorLogger.Error("Task not found", zap.Int("task_id", taskID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	logger.AuditLogger.Info("Task found", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task found",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// TakeTask membuat claim atas sebuah task untuk user yang login.
// Constraint UNIQUE(task_id) menjamin hanya caller pertama yang menang;
// yang kalah balapan mendapat 409.
func TakeTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("task_id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	var exists bool
	err = config.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM created_tasks WHERE id = $1)", taskID).Scan(&exists)
	if err != nil || !exists {
		logger.SecurityLogger.Warn("Task not found for take", zap.Int("task_id", taskID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	var claimID int
	err = config.DB.QueryRow(
		"INSERT INTO taken_tasks (task_id, executor_id) VALUES ($1, $2) RETURNING id",
		taskID, userID).Scan(&claimID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.SecurityLogger.Warn("Task already taken",
				zap.Int("task_id", taskID), zap.Int("user_id", userID))
			return c.Status(409).JSON(fiber.Map{
				"message": "Task already taken",
				"success": false,
				"status":  409,
			})
		}
		logger.ErrorLogger.Error("Error taking task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error taking task",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Task taken", zap.Int("task_id", taskID), zap.Int("claim_id", claimID))
	return c.JSON(fiber.Map{
		"message": "Task taken success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"claim_id": claimID,
		},
	})
}

// ListTakenTasks mengembalikan task-task yang sedang diklaim user login.
func ListTakenTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	rows, err := config.DB.Query(`
		SELECT `+taskColumns+`
		FROM taken_tasks tt
		JOIN created_tasks t ON t.id = tt.task_id
		JOIN users u ON u.id = t.creator_id
		WHERE tt.executor_id = $1
		ORDER BY t.created_at DESC`, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching taken tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching taken tasks",
			"success": false,
			"status":  500,
		})
	}

	tasks, err := collectTasks(rows)
	if err != nil {
		logger.ErrorLogger.Error("Error scanning taken tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error scanning taken tasks",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Taken tasks fetched successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Taken tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// CloseTask menutup sebuah claim: task induk ditandai selesai, baris
// claim dihapus, dan counter completed_tasks milik penutup naik satu.
// Ketiganya dalam satu transaksi; penutupan kedua atas claim yang sama
// mendapat 404 karena barisnya sudah tidak ada.
func CloseTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	claimID, err := c.ParamsInt("claim_id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid claim ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid claim ID",
			"success": false,
			"status":  400,
		})
	}

	tx, err := config.DB.Begin()
	if err != nil {
		logger.ErrorLogger.Error("Error starting transaction", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error closing task",
			"success": false,
			"status":  500,
		})
	}
	defer tx.Rollback()

	// FOR UPDATE supaya dua close bersamaan terserialisasi:
	// yang kedua akan melihat baris sudah hilang
	var taskID int
	err = tx.QueryRow("SELECT task_id FROM taken_tasks WHERE id = $1 FOR UPDATE", claimID).Scan(&taskID)
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Claim not found", zap.Int("claim_id", claimID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Claim not found",
			"success": false,
			"status":  404,
		})
	}
	if err == nil {
		_, err = tx.Exec("UPDATE created_tasks SET is_completed = TRUE WHERE id = $1", taskID)
	}
	if err == nil {
		_, err = tx.Exec("DELETE FROM taken_tasks WHERE id = $1", claimID)
	}
	if err == nil {
		_, err = tx.Exec("UPDATE users SET completed_tasks = completed_tasks + 1 WHERE id = $1", userID)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logger.ErrorLogger.Error("Error closing task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error closing task",
			"success": false,
			"status":  500,
		})
	}

	invalidateProfileCache(userID)

	logger.AuditLogger.Info("Claim closed",
		zap.Int("claim_id", claimID), zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Task closed success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"task_id": taskID,
		},
	})
}
