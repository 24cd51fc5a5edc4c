package routes

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

// VerifyEmail consumes an email-verification token: the user is marked
// verified and the token row is deleted so it cannot be replayed.
func VerifyEmail(ctx iris.Context) {
	token := ctx.URLParam("token")
	if token == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Token is required.", ctx)
		return
	}

	var dbToken models.VerificationToken
	tokenFound := storage.DB.Where("token = ?", token).Limit(1).Find(&dbToken)
	if tokenFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if tokenFound.RowsAffected == 0 || time.Now().After(dbToken.ExpiresAt) {
		utils.CreateError(iris.StatusBadRequest, "Token Error", "Invalid or expired token.", ctx)
		return
	}

	var user models.User
	userFound := storage.DB.Where("id = ?", dbToken.UserID).Limit(1).Find(&user)
	if userFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if userFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	user.IsVerified = true
	if err := storage.DB.Save(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if err := storage.DB.Delete(&models.VerificationToken{}, "id = ?", dbToken.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Email successfully verified"})
}
