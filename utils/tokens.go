package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SubletMatch/SubletMatch/storage"
)

var bgContext = context.Background()

const (
	AccessTokenMaxAge  = 24 * time.Hour
	RefreshTokenMaxAge = 365 * 24 * time.Hour
)

// AccessToken is the claims payload of the bearer credential. There is no
// revocation mechanism for access tokens: one is valid until its embedded
// expiry regardless of subsequent account changes.
type AccessToken struct {
	ID uuid.UUID `json:"id"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func CreateTokenPair(id uuid.UUID) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), AccessTokenMaxAge)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), RefreshTokenMaxAge)

	accessToken, err := accessTokenSigner.Sign(AccessToken{ID: id})
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(jwt.Claims{Subject: id.String()})
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	// Refresh tokens, unlike access tokens, are whitelisted so they can be
	// rotated: each one is good for exactly one refresh.
	storage.Redis.Set(bgContext, string(refreshToken), "true", RefreshTokenMaxAge+5*time.Minute)

	return &tokenPair, nil
}

func RefreshToken(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)

	validToken, tokenErr := storage.Redis.Get(bgContext, tokenStr).Result()
	if tokenErr != nil {
		CreateNotFound(ctx)
		return
	}
	if validToken != "true" {
		CreateForbidden(ctx)
		return
	}

	storage.Redis.Del(bgContext, tokenStr)

	userID, parseErr := uuid.Parse(token.StandardClaims.Subject)
	if parseErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	tokenPair, tokenPairErr := CreateTokenPair(userID)
	if tokenPairErr != nil {
		CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

// GenerateShortToken returns a URL-safe random hex string of n*2 characters,
// used for the opaque password-reset and email-verification tokens.
func GenerateShortToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
