package routes

import (
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/services"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

func CreateMessage(ctx iris.Context) {
	var input CreateMessageInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// The payload carries a sender id, but the bearer identity is
	// authoritative: a mismatch is rejected rather than trusted.
	claims := jwt.Get(ctx).(*utils.AccessToken)
	if input.SenderID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	message := models.Message{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		ListingID:  input.ListingID,
		Content:    input.Content,
	}

	if err := storage.DB.Create(&message).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(message)
}

// GetConversations returns the derived conversation summaries for a user,
// ordered by recency of last message.
func GetConversations(ctx iris.Context) {
	// Identity matching is enforced by utils.UserIDParamMiddleware up front.
	userID, err := uuid.Parse(ctx.Params().Get("userId"))
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid user id.", ctx)
		return
	}

	conversations, convErr := services.NewConversationService(storage.DB).ConversationsForUser(userID)
	if convErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(conversations)
}

// GetConversation returns the full thread between two users about one
// listing, oldest-first.
func GetConversation(ctx iris.Context) {
	listingID, listingErr := uuid.Parse(ctx.Params().Get("listingId"))
	userA, userAErr := uuid.Parse(ctx.Params().Get("user1"))
	userB, userBErr := uuid.Parse(ctx.Params().Get("user2"))
	if listingErr != nil || userAErr != nil || userBErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid listing or user id.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if claims.ID != userA && claims.ID != userB {
		utils.CreateForbidden(ctx)
		return
	}

	messages, err := services.NewConversationService(storage.DB).Thread(listingID, userA, userB)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(messages)
}

type CreateMessageInput struct {
	SenderID   uuid.UUID `json:"senderId" validate:"required"`
	ReceiverID uuid.UUID `json:"receiverId" validate:"required"`
	ListingID  uuid.UUID `json:"listingId" validate:"required"`
	Content    string    `json:"content" validate:"required,max=5000"`
}
