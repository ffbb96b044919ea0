package main

import (
	"fmt"
	"log"
	"os"

	"marketplace-server/routes"
	"marketplace-server/services"
	"marketplace-server/storage"
	"marketplace-server/utils"
	"marketplace-server/ws"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
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

	app.Use(iris.Compression)

	// JWT verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	// Browsers cannot set an Authorization header on a WebSocket handshake,
	// so the access verifier also accepts ?token= on the upgrade request.
	accessTokenVerifier.Extractors = append(accessTokenVerifier.Extractors, func(ctx iris.Context) string {
		return ctx.URLParam("token")
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Chat wiring: hub first, then the service with the hub as its
	// broadcaster, then the socket server on top of both.
	hub := ws.NewHub()
	chatService := services.NewChatService(storage.DB, hub)
	socketServer := ws.NewServer(hub, chatService)

	// Health check endpoint
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	app.Get("/ws", accessTokenVerifierMiddleware, ws.HandleConnection(socketServer))

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Get("/me", accessTokenVerifierMiddleware, routes.GetMe)
		user.Put("/me", accessTokenVerifierMiddleware, routes.UpdateMe)
		user.Patch("/me", accessTokenVerifierMiddleware, routes.UpdateMe)
	}

	products := app.Party("/api/products")
	{
		products.Get("/", routes.GetProducts)
		products.Get("/my-items", accessTokenVerifierMiddleware, routes.GetMyProducts)
		products.Get("/{id:uint}", routes.GetProduct)
		products.Post("/", accessTokenVerifierMiddleware, routes.CreateProduct)
		products.Put("/{id:uint}", accessTokenVerifierMiddleware, routes.UpdateProduct)
		products.Delete("/{id:uint}", accessTokenVerifierMiddleware, routes.DeleteProduct)
	}

	categories := app.Party("/api/categories")
	{
		categories.Get("/", routes.GetCategories)
	}

	addresses := app.Party("/api/addresses", accessTokenVerifierMiddleware)
	{
		addresses.Get("/", routes.GetAddresses)
		addresses.Get("/{id:uint}", routes.GetAddress)
		addresses.Post("/", routes.CreateAddress)
		addresses.Patch("/{id:uint}", routes.UpdateAddress)
		addresses.Delete("/{id:uint}", routes.DeleteAddress)
	}

	chat := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		chat.Post("/start", routes.StartConversation(chatService))
		chat.Get("/conversations", routes.GetConversations(chatService))
		chat.Get("/{id:uint}/messages", routes.GetMessages(chatService))
		chat.Post("/{id:uint}/messages", routes.SendMessage(chatService))
		chat.Post("/upload", routes.UploadImage)
		chat.Post("/upload-video", routes.UploadVideo)
		chat.Delete("/messages/{id:uint}", routes.DeleteMessage(chatService))
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", routes.AdminListUsers)
		admin.Get("/users/{id:uint}", routes.AdminGetUser)
		admin.Patch("/users/{id:uint}/role", routes.AdminChangeUserRole)
		admin.Delete("/users/{id:uint}", routes.AdminDeleteUser)
		admin.Get("/products", routes.AdminListProducts)
		admin.Get("/products/pending", routes.AdminListPendingProducts)
		admin.Post("/products/{id:uint}/approve", routes.AdminApproveProduct)
		admin.Post("/products/{id:uint}/reject", routes.AdminRejectProduct)
		admin.Get("/categories", routes.AdminListCategories)
		admin.Post("/categories", routes.AdminCreateCategory)
		admin.Patch("/categories/{id:uint}", routes.AdminUpdateCategory)
		admin.Delete("/categories/{id:uint}", routes.AdminDeleteCategory)
		admin.Get("/stats", routes.AdminStats)
		admin.Get("/activity", routes.AdminActivity)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
