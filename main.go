package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ITstollman/3Dtourio-back/routes"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/rate"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	storage.InitializeDB()
	storage.InitializeObjects()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression plus a per-IP request budget
	app.Use(iris.Compression)
	app.Use(rate.Limit(20, 40))

	// Generation jobs are expensive on the provider side, keep them rare
	generateLimiter := rate.Limit(0.2, 2)

	// Health check endpoint
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	// Routes
	user := app.Party("/api/user", utils.AuthMiddleware)
	{
		user.Post("/onboard", routes.OnboardUser)
		user.Get("/me", routes.GetMe)
	}

	team := app.Party("/api/team", utils.AuthMiddleware)
	{
		team.Post("/", routes.CreateTeam)
		team.Get("/", routes.GetMyTeams)
		team.Post("/join", routes.JoinTeam)
		team.Get("/{id}", routes.GetTeam)
		team.Patch("/{id}", routes.UpdateTeam)
		team.Delete("/{id}", routes.DeleteTeam)
		team.Post("/{id}/leave", routes.LeaveTeam)
		team.Delete("/{id}/members/{userID}", routes.RemoveTeamMember)
		team.Get("/{id}/invite", routes.GetInviteCode)
		team.Post("/{id}/invite/rotate", routes.RotateInviteCode)
		team.Post("/{id}/invite/toggle", routes.ToggleInvites)
	}

	space := app.Party("/api/space", utils.AuthMiddleware)
	{
		space.Post("/", routes.CreateSpace)
		space.Get("/team/{teamID}", routes.ListTeamSpaces)
		space.Get("/{id}", routes.GetSpace)
		space.Patch("/{id}", routes.UpdateSpace)
		space.Delete("/{id}", routes.DeleteSpace)
		space.Post("/{id}/images", routes.AddSpaceImages)
		space.Post("/{id}/generate", generateLimiter, routes.GenerateSpace)
		space.Get("/{id}/status", routes.GetSpaceStatus)
	}

	tour := app.Party("/api/tour")
	{
		// Share links are viewable without credentials
		tour.Get("/shared/{token}", routes.GetSharedTour)

		tour.Post("/", utils.AuthMiddleware, routes.CreateTour)
		tour.Get("/team/{teamID}", utils.AuthMiddleware, routes.ListTeamTours)
		tour.Get("/{id}", utils.AuthMiddleware, routes.GetTour)
		tour.Patch("/{id}", utils.AuthMiddleware, routes.UpdateTour)
		tour.Delete("/{id}", utils.AuthMiddleware, routes.DeleteTour)
		tour.Post("/{id}/rooms", utils.AuthMiddleware, routes.AddTourRoom)
		tour.Patch("/{id}/rooms", utils.AuthMiddleware, routes.UpdateTourRooms)
		tour.Delete("/{id}/rooms/{spaceID}", utils.AuthMiddleware, routes.RemoveTourRoom)
		tour.Post("/{id}/share/rotate", utils.AuthMiddleware, routes.RotateShareToken)
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	// Start server
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
