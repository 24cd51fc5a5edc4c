package routes

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/rs/zerolog/log"

	"github.com/SubletMatch/SubletMatch/models"
	"github.com/SubletMatch/SubletMatch/storage"
	"github.com/SubletMatch/SubletMatch/utils"
)

func GetListings(ctx iris.Context) {
	skip := ctx.URLParamIntDefault("skip", 0)
	limit := ctx.URLParamIntDefault("limit", 10)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := storage.DB.Model(&models.Listing{}).Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var listings []models.Listing
	result := storage.DB.Preload("Images").
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&listings)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, listings, skip, limit, total)
}

func GetListing(ctx iris.Context) {
	listing := getListingByID(ctx.Params().Get("id"), ctx)
	if listing == nil {
		return
	}

	ctx.JSON(listing)
}

func GetMyListings(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var listings []models.Listing
	result := storage.DB.Preload("Images").
		Where("user_id = ?", claims.ID).
		Order("created_at DESC").
		Find(&listings)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listings)
}

func CreateListing(ctx iris.Context) {
	var input CreateListingInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	availableFrom, availableTo, datesErr := parseAvailability(input.AvailableFrom, input.AvailableTo)
	if datesErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", datesErr.Error(), ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	status := input.Status
	if status == "" {
		status = "active"
	}

	listing := models.Listing{
		UserID:        claims.ID,
		Title:         input.Title,
		Description:   input.Description,
		Price:         input.Price,
		Address:       input.Address,
		City:          input.City,
		State:         input.State,
		PropertyType:  input.PropertyType,
		Bedrooms:      input.Bedrooms,
		Bathrooms:     input.Bathrooms,
		AvailableFrom: availableFrom,
		AvailableTo:   availableTo,
		Status:        status,
	}

	if err := storage.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(listing)
}

func UpdateListing(ctx iris.Context) {
	listing := getListingByID(ctx.Params().Get("id"), ctx)
	if listing == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if listing.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateListingInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Title != nil {
		listing.Title = *input.Title
	}
	if input.Description != nil {
		listing.Description = *input.Description
	}
	if input.Price != nil {
		listing.Price = *input.Price
	}
	if input.Address != nil {
		listing.Address = *input.Address
	}
	if input.City != nil {
		listing.City = *input.City
	}
	if input.State != nil {
		listing.State = *input.State
	}
	if input.PropertyType != nil {
		listing.PropertyType = *input.PropertyType
	}
	if input.Bedrooms != nil {
		listing.Bedrooms = *input.Bedrooms
	}
	if input.Bathrooms != nil {
		listing.Bathrooms = *input.Bathrooms
	}
	if input.Status != nil {
		listing.Status = *input.Status
	}

	fromStr := listing.AvailableFrom.Format(time.RFC3339)
	toStr := listing.AvailableTo.Format(time.RFC3339)
	if input.AvailableFrom != nil {
		fromStr = *input.AvailableFrom
	}
	if input.AvailableTo != nil {
		toStr = *input.AvailableTo
	}
	if input.AvailableFrom != nil || input.AvailableTo != nil {
		availableFrom, availableTo, datesErr := parseAvailability(fromStr, toStr)
		if datesErr != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", datesErr.Error(), ctx)
			return
		}
		listing.AvailableFrom = availableFrom
		listing.AvailableTo = availableTo
	}

	if err := storage.DB.Save(listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listing)
}

func DeleteListing(ctx iris.Context) {
	listing := getListingByID(ctx.Params().Get("id"), ctx)
	if listing == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if listing.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	// Blob deletion is best-effort: a storage failure is logged and the
	// database delete proceeds regardless.
	for _, image := range listing.Images {
		deleteImageBlob(ctx, image)
	}

	if err := storage.DB.Where("listing_id = ?", listing.ID).Delete(&models.ListingImage{}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	storage.DB.Where("listing_id = ?", listing.ID).Delete(&models.SavedListing{})

	if err := storage.DB.Delete(&models.Listing{}, "id = ?", listing.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func UploadListingImages(ctx iris.Context) {
	listing := getListingByID(ctx.Params().Get("id"), ctx)
	if listing == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if listing.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := ctx.Request().ParseMultipartForm(32 << 20); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid multipart form.", ctx)
		return
	}

	form := ctx.Request().MultipartForm
	files := form.File["files"]
	if len(files) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "No files provided.", ctx)
		return
	}

	images := []models.ListingImage{}
	for _, fileHeader := range files {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Could not read uploaded file.", ctx)
			return
		}

		imageID := uuid.New()
		key := fmt.Sprintf("listings/%s/%s%s", listing.ID, imageID, path.Ext(fileHeader.Filename))
		contentType := fileHeader.Header.Get("Content-Type")

		imageURL, uploadErr := storage.Blobs.Upload(ctx.Request().Context(), key, file, contentType)
		file.Close()
		if uploadErr != nil {
			log.Error().Err(uploadErr).Str("listingID", listing.ID.String()).Msg("image upload failed")
			utils.CreateInternalServerError(ctx)
			return
		}

		image := models.ListingImage{
			ID:        imageID,
			ListingID: listing.ID,
			ImageURL:  imageURL,
		}
		if err := storage.DB.Create(&image).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		images = append(images, image)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(images)
}

func DeleteListingImage(ctx iris.Context) {
	listing := getListingByID(ctx.Params().Get("id"), ctx)
	if listing == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if listing.UserID != claims.ID {
		utils.CreateForbidden(ctx)
		return
	}

	imageID := ctx.Params().Get("imageId")
	if _, err := uuid.Parse(imageID); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid image id.", ctx)
		return
	}

	var image models.ListingImage
	imageFound := storage.DB.Where("id = ? AND listing_id = ?", imageID, listing.ID).Limit(1).Find(&image)
	if imageFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if imageFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	deleteImageBlob(ctx, image)

	if err := storage.DB.Delete(&models.ListingImage{}, "id = ?", image.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func getListingByID(id string, ctx iris.Context) *models.Listing {
	if _, err := uuid.Parse(id); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid listing id.", ctx)
		return nil
	}

	var listing models.Listing
	listingFound := storage.DB.Preload("Images").Where("id = ?", id).Limit(1).Find(&listing)
	if listingFound.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if listingFound.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	return &listing
}

func deleteImageBlob(ctx iris.Context, image models.ListingImage) {
	key := blobKeyFromURL(image.ImageURL)
	if key == "" {
		return
	}
	if err := storage.Blobs.Delete(ctx.Request().Context(), key); err != nil {
		log.Error().Err(err).Str("imageID", image.ID.String()).Str("key", key).Msg("blob deletion failed, continuing")
	}
}

func blobKeyFromURL(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Path, "/")
}

func parseAvailability(from, to string) (time.Time, time.Time, error) {
	availableFrom, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid availableFrom date format, expected RFC3339")
	}
	availableTo, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid availableTo date format, expected RFC3339")
	}
	if !availableFrom.Before(availableTo) {
		return time.Time{}, time.Time{}, fmt.Errorf("availableFrom must be before availableTo")
	}
	return availableFrom, availableTo, nil
}

type CreateListingInput struct {
	Title         string  `json:"title" validate:"required,max=256"`
	Description   string  `json:"description" validate:"required"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	Address       string  `json:"address" validate:"required"`
	City          string  `json:"city" validate:"required"`
	State         string  `json:"state" validate:"required"`
	PropertyType  string  `json:"propertyType" validate:"required,oneof=Apartment House Condo Townhouse Studio Loft Duplex Room"`
	Bedrooms      int     `json:"bedrooms" validate:"required,gt=0"`
	Bathrooms     float64 `json:"bathrooms" validate:"required,gt=0"`
	AvailableFrom string  `json:"availableFrom" validate:"required"`
	AvailableTo   string  `json:"availableTo" validate:"required"`
	Status        string  `json:"status" validate:"omitempty,oneof=draft active"`
}

type UpdateListingInput struct {
	Title         *string  `json:"title" validate:"omitempty,max=256"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"omitempty,gt=0"`
	Address       *string  `json:"address"`
	City          *string  `json:"city"`
	State         *string  `json:"state"`
	PropertyType  *string  `json:"propertyType" validate:"omitempty,oneof=Apartment House Condo Townhouse Studio Loft Duplex Room"`
	Bedrooms      *int     `json:"bedrooms" validate:"omitempty,gt=0"`
	Bathrooms     *float64 `json:"bathrooms" validate:"omitempty,gt=0"`
	AvailableFrom *string  `json:"availableFrom"`
	AvailableTo   *string  `json:"availableTo"`
	Status        *string  `json:"status" validate:"omitempty,oneof=draft active"`
}
