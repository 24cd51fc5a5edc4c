package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// A single connection so every session sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.ListingImage{},
		&models.Message{},
		&models.SavedListing{},
		&models.PublicKey{},
		&models.PasswordResetToken{},
		&models.VerificationToken{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	storage.DB = db
	return db
}

func setupTestRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	storage.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type fakeBlobStore struct {
	failDelete bool
	uploaded   []string
	deleted    []string
}

func (f *fakeBlobStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	f.uploaded = append(f.uploaded, key)
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("blob store unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func setupTestBlobs(t *testing.T, failDelete bool) *fakeBlobStore {
	t.Helper()
	fake := &fakeBlobStore{failDelete: failDelete}
	storage.Blobs = fake
	return fake
}

// newTestApp mirrors the route wiring in main.go.
func newTestApp(t *testing.T) *iris.Application {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("REFRESH_TOKEN_SECRET", testRefreshSecret)

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(testAccessSecret))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	api := app.Party("/api/v1")

	auth := api.Party("/auth")
	auth.Post("/signup", Register)
	auth.Post("/token", Login)
	auth.Post("/forgot-password", ForgotPassword)
	auth.Post("/reset-password", ResetPassword)
	auth.Get("/me", accessTokenVerifierMiddleware, GetMe)
	auth.Put("/me", accessTokenVerifierMiddleware, UpdateMe)

	listings := api.Party("/listings")
	listings.Get("/", GetListings)
	listings.Get("/my", accessTokenVerifierMiddleware, GetMyListings)
	listings.Post("/create", accessTokenVerifierMiddleware, CreateListing)
	listings.Get("/{id}", GetListing)
	listings.Put("/{id}", accessTokenVerifierMiddleware, UpdateListing)
	listings.Delete("/{id}", accessTokenVerifierMiddleware, DeleteListing)
	listings.Post("/{id}/images", accessTokenVerifierMiddleware, UploadListingImages)
	listings.Delete("/{id}/images/{imageId}", accessTokenVerifierMiddleware, DeleteListingImage)

	messages := api.Party("/messages")
	messages.Post("/", accessTokenVerifierMiddleware, CreateMessage)
	messages.Get("/conversations/{userId}", accessTokenVerifierMiddleware, utils.UserIDParamMiddleware("userId"), GetConversations)
	messages.Get("/conversation/{listingId}/{user1}/{user2}", accessTokenVerifierMiddleware, GetConversation)

	savedListings := api.Party("/saved-listings")
	savedListings.Post("/", SaveListing)
	savedListings.Get("/", GetSavedListings)
	savedListings.Delete("/", UnsaveListing)

	keys := api.Party("/keys")
	keys.Post("/upload", UploadPublicKey)
	keys.Get("/{userId}", GetPublicKey)

	api.Get("/verify-email", VerifyEmail)
	api.Get("/health", Health)

	if err := app.Build(); err != nil {
		t.Fatalf("failed to build test app: %v", err)
	}
	return app
}

func accessTokenFor(t *testing.T, id uuid.UUID) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, testAccessSecret, time.Hour)
	token, err := signer.Sign(utils.AccessToken{ID: id})
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return string(token)
}

func doJSON(t *testing.T, app *iris.Application, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	app.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestListing(t *testing.T, db *gorm.DB, owner models.User, title string) models.Listing {
	t.Helper()
	listing := models.Listing{
		UserID:        owner.ID,
		Title:         title,
		Description:   "a test sublet",
		Price:         1200,
		Address:       "123 Main St",
		City:          "Boston",
		State:         "MA",
		PropertyType:  "Apartment",
		Bedrooms:      2,
		Bathrooms:     1,
		AvailableFrom: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		AvailableTo:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:        "active",
	}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("failed to create test listing: %v", err)
	}
	return listing
}

func createTestMessage(t *testing.T, db *gorm.DB, sender, receiver models.User, listing models.Listing, content string, ts time.Time) models.Message {
	t.Helper()
	message := models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		ListingID:  listing.ID,
		Content:    content,
		Timestamp:  ts,
	}
	if err := db.Create(&message).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}
	return message
}
