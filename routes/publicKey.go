package routes

import (
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

// UploadPublicKey upserts the user's encryption public key. The server only
// distributes keys for client-side end-to-end encryption setup.
func UploadPublicKey(ctx iris.Context) {
	var input UploadPublicKeyInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existing models.PublicKey
	existingFound := storage.DB.Where("user_id = ?", input.UserID).Limit(1).Find(&existing)
	if existingFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if existingFound.RowsAffected > 0 {
		existing.PublicKey = input.PublicKey
		if err := storage.DB.Save(&existing).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	} else {
		key := models.PublicKey{UserID: input.UserID, PublicKey: input.PublicKey}
		if err := storage.DB.Create(&key).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(iris.Map{"status": "success"})
}

func GetPublicKey(ctx iris.Context) {
	userID, err := uuid.Parse(ctx.Params().Get("userId"))
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid user id.", ctx)
		return
	}

	var key models.PublicKey
	keyFound := storage.DB.Where("user_id = ?", userID).Limit(1).Find(&key)
	if keyFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if keyFound.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Public key not found.", ctx)
		return
	}

	ctx.JSON(key)
}

type UploadPublicKeyInput struct {
	UserID    uuid.UUID `json:"userId" validate:"required"`
	PublicKey string    `json:"publicKey" validate:"required"`
}
