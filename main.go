package main

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SubletMatch/SubletMatch/routes"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

func main() {
	godotenv.Load()
	initLogger()

	storage.InitializeDB()
	storage.InitializeS3()
	storage.InitializeRedis()

	app := buildApp()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func initLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("ENV") == "dev" {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(cw).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func buildApp() *iris.Application {
	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	api := app.Party("/api/v1")

	auth := api.Party("/auth")
	{
		auth.Post("/signup", routes.Register)
		auth.Post("/token", routes.Login)
		auth.Post("/forgot-password", routes.ForgotPassword)
		auth.Post("/reset-password", routes.ResetPassword)
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		auth.Get("/me", accessTokenVerifierMiddleware, routes.GetMe)
		auth.Put("/me", accessTokenVerifierMiddleware, routes.UpdateMe)
	}

	listings := api.Party("/listings")
	{
		listings.Get("/", routes.GetListings)
		listings.Get("/my", accessTokenVerifierMiddleware, routes.GetMyListings)
		listings.Post("/create", accessTokenVerifierMiddleware, routes.CreateListing)
		listings.Get("/{id}", routes.GetListing)
		listings.Put("/{id}", accessTokenVerifierMiddleware, routes.UpdateListing)
		listings.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteListing)
		listings.Post("/{id}/images", accessTokenVerifierMiddleware, routes.UploadListingImages)
		listings.Delete("/{id}/images/{imageId}", accessTokenVerifierMiddleware, routes.DeleteListingImage)
	}

	messages := api.Party("/messages")
	{
		messages.Post("/", accessTokenVerifierMiddleware, routes.CreateMessage)
		messages.Get("/conversations/{userId}", accessTokenVerifierMiddleware, utils.UserIDParamMiddleware("userId"), routes.GetConversations)
		messages.Get("/conversation/{listingId}/{user1}/{user2}", accessTokenVerifierMiddleware, routes.GetConversation)
	}

	savedListings := api.Party("/saved-listings")
	{
		savedListings.Post("/", routes.SaveListing)
		savedListings.Get("/", routes.GetSavedListings)
		savedListings.Delete("/", routes.UnsaveListing)
	}

	keys := api.Party("/keys")
	{
		keys.Post("/upload", routes.UploadPublicKey)
		keys.Get("/{userId}", routes.GetPublicKey)
	}

	api.Get("/verify-email", routes.VerifyEmail)
	api.Get("/health", routes.Health)

	return app
}
