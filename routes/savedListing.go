package routes

import (
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

func SaveListing(ctx iris.Context) {
	userID, listingID, ok := savedListingParams(ctx)
	if !ok {
		return
	}

	var existing models.SavedListing
	existingFound := storage.DB.
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Limit(1).Find(&existing)
	if existingFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if existingFound.RowsAffected > 0 {
		utils.CreateError(iris.StatusBadRequest, "Conflict", "Listing already saved.", ctx)
		return
	}

	saved := models.SavedListing{UserID: userID, ListingID: listingID}
	if err := storage.DB.Create(&saved).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"status": "saved"})
}

func GetSavedListings(ctx iris.Context) {
	userID, err := uuid.Parse(ctx.URLParam("user_id"))
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid user id.", ctx)
		return
	}

	var listings []models.Listing
	result := storage.DB.Preload("Images").
		Joins("JOIN saved_listings ON saved_listings.listing_id = listings.id").
		Where("saved_listings.user_id = ?", userID).
		Order("saved_listings.saved_at DESC").
		Find(&listings)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listings)
}

func UnsaveListing(ctx iris.Context) {
	userID, listingID, ok := savedListingParams(ctx)
	if !ok {
		return
	}

	deleted := storage.DB.
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.SavedListing{})
	if deleted.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if deleted.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Saved listing not found.", ctx)
		return
	}

	ctx.JSON(iris.Map{"status": "unsaved"})
}

func savedListingParams(ctx iris.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, userErr := uuid.Parse(ctx.URLParam("user_id"))
	listingID, listingErr := uuid.Parse(ctx.URLParam("listing_id"))
	if userErr != nil || listingErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid user or listing id.", ctx)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, listingID, true
}
