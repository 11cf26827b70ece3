package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"trivial-go/internal/api/v1/handlers"
	"trivial-go/internal/middleware"
	myws "trivial-go/internal/websocket"
)

func RegisterRoutes(app *fiber.App, hub *myws.Hub) {
	// Auth
	auth := app.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/verify", handlers.VerifyEmail)
	auth.Post("/login", handlers.Login)
	auth.Post("/logout", handlers.Logout)
	auth.Delete("/delete", middleware.UseToken, handlers.DeleteUser)

	// Profile
	profile := app.Group("/profile")
	profile.Get("/set-rating-for-user/:user_id/:rating/:operation", middleware.UseToken, handlers.SetRating)
	profile.Put("/", middleware.UseToken, handlers.UpdateProfile)
	profile.Post("/image", middleware.UseToken, handlers.UploadProfileImage)
	profile.Get("/:user_id", handlers.GetProfile)
	app.Get("/uploads/:filename", handlers.GetFile)

	// Task milik sendiri
	me := app.Group("/me", middleware.UseToken)
	me.Get("/tasks", handlers.ListMyTasks)
	me.Post("/tasks", handlers.CreateTask)
	me.Delete("/tasks", handlers.DeleteMyTask)
	me.Get("/taken-tasks", handlers.ListTakenTasks)

	// Task publik dan lifecycle claim
	app.Get("/tasks", handlers.ListAllTasks)
	app.Get("/tasks/:task_id", handlers.GetTask)
	app.Post("/tasks/close/:claim_id", middleware.UseToken, handlers.CloseTask)
	app.Post("/take-task/:task_id", middleware.UseToken, handlers.TakeTask)

	// WebSocket chat
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/room/:room_id", websocket.New(myws.ServeRoom(hub)))
}
