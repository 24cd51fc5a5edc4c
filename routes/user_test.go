package routes

import (
	"net/http"
	"testing"
	"time"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	setupTestRedis(t)
	app := newTestApp(t)

	rr := doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Aaron",
		"email":    "Aaron@Example.com",
		"password": "supersecret",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body %s", rr.Code, rr.Body.String())
	}

	var signupBody struct {
		Email        string `json:"email"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeJSON(t, rr, &signupBody)
	if signupBody.Email != "aaron@example.com" {
		t.Errorf("signup stored email = %q, want lowercased", signupBody.Email)
	}
	if signupBody.AccessToken == "" || signupBody.RefreshToken == "" {
		t.Error("signup response missing token pair")
	}

	// Signup also issues an email-verification token.
	var tokenCount int64
	db.Model(&models.VerificationToken{}).Count(&tokenCount)
	if tokenCount != 1 {
		t.Errorf("verification token count = %d, want 1", tokenCount)
	}

	rr = doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Imposter",
		"email":    "aaron@example.com",
		"password": "supersecret",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, app, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"email":    "aaron@example.com",
		"password": "supersecret",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("login status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, app, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"email":    "aaron@example.com",
		"password": "wrongpassword",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad-password login status = %d, want 401", rr.Code)
	}
}

func TestGetAndUpdateMe(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(t)
	user := createTestUser(t, db, "Aaron", "aaron@example.com")
	token := accessTokenFor(t, user.ID)

	rr := doJSON(t, app, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get me status = %d, body %s", rr.Code, rr.Body.String())
	}
	var me models.User
	decodeJSON(t, rr, &me)
	if me.ID != user.ID || me.Email != "aaron@example.com" {
		t.Errorf("unexpected /me payload: %+v", me)
	}

	rr = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me status = %d, want 401", rr.Code)
	}

	name := "Aaron B."
	rr = doJSON(t, app, http.MethodPut, "/api/v1/auth/me", token, map[string]string{"name": name})
	if rr.Code != http.StatusOK {
		t.Fatalf("update me status = %d, body %s", rr.Code, rr.Body.String())
	}
	var updated models.User
	db.First(&updated, "id = ?", user.ID)
	if updated.Name != name {
		t.Errorf("updated name = %q, want %q", updated.Name, name)
	}
}

func TestForgotPasswordEnumerationSafety(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(t)
	createTestUser(t, db, "Aaron", "aaron@example.com")

	known := doJSON(t, app, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "aaron@example.com",
	})
	unknown := doJSON(t, app, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("forgot-password statuses = %d / %d, want 200 / 200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("forgot-password leaks account existence:\nknown:   %s\nunknown: %s",
			known.Body.String(), unknown.Body.String())
	}

	// Only the real account gets a reset token.
	var tokenCount int64
	db.Model(&models.PasswordResetToken{}).Count(&tokenCount)
	if tokenCount != 1 {
		t.Errorf("reset token count = %d, want 1", tokenCount)
	}
}

func TestResetPasswordSingleUse(t *testing.T) {
	db := setupTestDB(t)
	setupTestRedis(t)
	app := newTestApp(t)
	user := createTestUser(t, db, "Aaron", "aaron@example.com")

	resetToken := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     utils.GenerateShortToken(32),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.Create(&resetToken).Error; err != nil {
		t.Fatalf("failed to seed reset token: %v", err)
	}

	rr := doJSON(t, app, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token":       resetToken.Token,
		"newPassword": "brandnewpassword",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, app, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"email":    "aaron@example.com",
		"password": "brandnewpassword",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("login with new password status = %d, want 200", rr.Code)
	}

	// Second use of the same token is rejected.
	rr = doJSON(t, app, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token":       resetToken.Token,
		"newPassword": "anotherpassword",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("token reuse status = %d, want 400", rr.Code)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(t)
	user := createTestUser(t, db, "Aaron", "aaron@example.com")

	expired := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     utils.GenerateShortToken(32),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("failed to seed expired token: %v", err)
	}

	rr := doJSON(t, app, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token":       expired.Token,
		"newPassword": "brandnewpassword",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expired token status = %d, want 400", rr.Code)
	}
}

func TestVerifyEmail(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(t)
	user := createTestUser(t, db, "Aaron", "aaron@example.com")

	verification := models.VerificationToken{
		UserID:    user.ID,
		Token:     utils.GenerateShortToken(16),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.Create(&verification).Error; err != nil {
		t.Fatalf("failed to seed verification token: %v", err)
	}

	rr := doJSON(t, app, http.MethodGet, "/api/v1/verify-email?token="+verification.Token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", rr.Code, rr.Body.String())
	}

	var verified models.User
	db.First(&verified, "id = ?", user.ID)
	if !verified.IsVerified {
		t.Error("user was not marked verified")
	}

	// The token is deleted on use and cannot be replayed.
	rr = doJSON(t, app, http.MethodGet, "/api/v1/verify-email?token="+verification.Token, "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("replayed verification status = %d, want 400", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	setupTestDB(t)
	app := newTestApp(t)

	rr := doJSON(t, app, http.MethodGet, "/api/v1/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	decodeJSON(t, rr, &body)
	if body.Status != "healthy" || body.Database != "connected" {
		t.Errorf("health payload = %+v", body)
	}
}
