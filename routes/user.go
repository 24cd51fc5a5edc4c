package routes

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/services"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		Email:        strings.ToLower(userInput.Email),
		Name:         userInput.Name,
		PasswordHash: hashedPassword,
	}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	verification := models.VerificationToken{
		UserID:    newUser.ID,
		Token:     utils.GenerateShortToken(16),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := storage.DB.Create(&verification).Error; err != nil {
		log.Error().Err(err).Str("userID", newUser.ID.String()).Msg("failed to create verification token")
	}

	// Emails must never block or fail signup.
	emailService := services.NewEmailService()
	go func(user models.User, token string) {
		if err := emailService.SendWelcomeEmail(user.Email, user.DisplayName()); err != nil {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to send welcome email")
		}
		if token == "" {
			return
		}
		if err := emailService.SendVerificationEmail(user.Email, user.DisplayName(), token); err != nil {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification email")
		}
	}(newUser, verification.Token)

	returnUser(newUser, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "Invalid email or password."

	var existingUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnUser(existingUser, ctx)
}

func GetMe(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var user models.User
	userFound := storage.DB.Where("id = ?", claims.ID).Limit(1).Find(&user)
	if userFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(user)
}

func UpdateMe(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input UpdateUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	userFound := storage.DB.Where("id = ?", claims.ID).Limit(1).Find(&user)
	if userFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		email := strings.ToLower(*input.Email)
		if email != user.Email {
			var other models.User
			otherExists, otherErr := getAndHandleUserExists(&other, email)
			if otherErr != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			if otherExists {
				utils.CreateEmailAlreadyRegistered(ctx)
				return
			}
			user.Email = email
		}
	}

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(user)
}

func ForgotPassword(ctx iris.Context) {
	var emailInput EmailRegisteredInput
	err := ctx.ReadJSON(&emailInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	userExists, userExistsErr := getAndHandleUserExists(&user, emailInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		resetToken := models.PasswordResetToken{
			UserID:    user.ID,
			Token:     utils.GenerateShortToken(32),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := storage.DB.Create(&resetToken).Error; err != nil {
			log.Error().Err(err).Str("userID", user.ID.String()).Msg("failed to create password reset token")
		} else {
			emailService := services.NewEmailService()
			go func(email, token string) {
				if err := emailService.SendPasswordResetEmail(email, token); err != nil {
					log.Error().Err(err).Str("email", email).Msg("failed to send password reset email")
				}
			}(user.Email, resetToken.Token)
		}
	}

	// The response is identical whether or not the email has an account, so
	// this endpoint cannot be used to enumerate registered addresses.
	ctx.JSON(iris.Map{
		"message": "If an account with that email exists, a password reset link has been sent.",
	})
}

func ResetPassword(ctx iris.Context) {
	var input ResetPasswordInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	invalidMsg := "Invalid or expired token."

	var resetToken models.PasswordResetToken
	tokenFound := storage.DB.Where("token = ?", input.Token).Limit(1).Find(&resetToken)
	if tokenFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if tokenFound.RowsAffected == 0 || resetToken.Used || time.Now().After(resetToken.ExpiresAt) {
		utils.CreateError(iris.StatusBadRequest, "Token Error", invalidMsg, ctx)
		return
	}

	var user models.User
	userFound := storage.DB.Where("id = ?", resetToken.UserID).Limit(1).Find(&user)
	if userFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.NewPassword)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	user.PasswordHash = hashedPassword
	resetToken.Used = true

	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if err := storage.DB.Save(&resetToken).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Password has been reset."})
}

func returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"isVerified":   user.IsVerified,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(user)
	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}
	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

type RegisterUserInput struct {
	Name     string `json:"name" validate:"required,max=256"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserInput struct {
	Name  *string `json:"name" validate:"omitempty,max=256"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type EmailRegisteredInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=256"`
}
