package routes

import (
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/services"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"
	"github.com/kataras/iris/v12"
)

var worldGen = services.NewWorldGenService()
var assetPipeline = services.NewAssetPipeline()

// CreateSpace creates a new space in uploading state
func CreateSpace(ctx iris.Context) {
	var input struct {
		TeamID      string `json:"team_id" validate:"required,uuid"`
		Name        string `json:"name" validate:"required,max=200"`
		Address     string `json:"address" validate:"max=300"`
		Description string `json:"description" validate:"max=2000"`
	}

	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !utils.EnsureTeamMember(ctx, input.TeamID) {
		return
	}

	space := models.Space{
		TeamID:      input.TeamID,
		CreatorID:   ctx.Values().GetString("userID"),
		Name:        input.Name,
		Address:     input.Address,
		Description: input.Description,
		Status:      models.SpaceStatusUploading,
	}

	if err := storage.DB.Create(&space).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create space"})
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"message": "Space created successfully",
		"space":   space,
	})
}

// AddSpaceImages attaches uploaded room photos to a space. Images arrive
// as base64 payloads, are recompressed server-side and stored.
func AddSpaceImages(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}

	if space.Status != models.SpaceStatusUploading {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Images can only be added while the space is uploading"})
		return
	}

	var input struct {
		Images []string `json:"images" validate:"required,min=1,max=32,dive,required"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	urls := make([]string, 0, len(input.Images))
	for i, encoded := range input.Images {
		data, err := decodeBase64Image(encoded)
		if err != nil {
			ctx.StatusCode(http.StatusBadRequest)
			ctx.JSON(iris.Map{"error": "Invalid base64 image", "index": i})
			return
		}

		url, err := assetPipeline.StoreRoomImage(space, space.ImageCount+i, data)
		if err != nil {
			log.Printf("room image upload failed for space %s: %v", space.ID, err)
			ctx.StatusCode(http.StatusInternalServerError)
			ctx.JSON(iris.Map{"error": "Failed to store image", "index": i})
			return
		}
		urls = append(urls, url)
	}

	space.ImageCount += len(input.Images)
	if err := storage.DB.Model(space).Update("image_count", space.ImageCount).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update space"})
		return
	}

	ctx.JSON(iris.Map{
		"image_count": space.ImageCount,
		"urls":        urls,
	})
}

// GenerateSpace submits the space's images to the generation provider and
// flips the space to generating.
func GenerateSpace(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}

	if space.Status != models.SpaceStatusUploading {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Space is not awaiting generation", "status": space.Status})
		return
	}
	if space.ImageCount == 0 {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Space has no images"})
		return
	}

	imageURLs := make([]string, 0, space.ImageCount)
	for i := 0; i < space.ImageCount; i++ {
		imageURLs = append(imageURLs, storage.ObjectURL(services.RoomImageKey(space.TeamID, space.ID, i)))
	}

	operationID, err := worldGen.SubmitGeneration(space.Name, imageURLs)
	if err != nil {
		log.Printf("generation submit failed for space %s: %v", space.ID, err)
		ctx.StatusCode(http.StatusBadGateway)
		ctx.JSON(iris.Map{"error": "Generation provider rejected the job"})
		return
	}

	space.Status = models.SpaceStatusGenerating
	space.OperationID = operationID
	space.ErrorMessage = ""
	if err := storage.DB.Model(space).Updates(map[string]interface{}{
		"status":        space.Status,
		"operation_id":  space.OperationID,
		"error_message": "",
	}).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update space"})
		return
	}

	ctx.StatusCode(http.StatusAccepted)
	ctx.JSON(iris.Map{"space": space})
}

// GetSpaceStatus returns the space, polling the provider once when a
// generation is in flight. Completion triggers the asset pipeline before
// the status flips to ready.
func GetSpaceStatus(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}

	if space.Status != models.SpaceStatusGenerating {
		ctx.JSON(iris.Map{"space": space})
		return
	}

	op, err := worldGen.GetOperation(space.OperationID)
	if err != nil {
		log.Printf("operation poll failed for space %s: %v", space.ID, err)
		ctx.StatusCode(http.StatusBadGateway)
		ctx.JSON(iris.Map{"error": "Failed to poll generation provider"})
		return
	}

	if !op.Done {
		ctx.JSON(iris.Map{"space": space})
		return
	}

	if op.Error != "" {
		failSpace(space, op.Error)
		ctx.JSON(iris.Map{"space": space})
		return
	}

	world, err := worldGen.GetWorld(op.WorldID)
	if err != nil {
		log.Printf("world fetch failed for space %s: %v", space.ID, err)
		failSpace(space, "failed to fetch generated world")
		ctx.JSON(iris.Map{"space": space})
		return
	}

	assets, err := assetPipeline.Process(space, world)
	if err != nil {
		log.Printf("asset processing failed for space %s: %v", space.ID, err)
		failSpace(space, "asset processing failed: "+err.Error())
		ctx.JSON(iris.Map{"space": space})
		return
	}

	space.Status = models.SpaceStatusReady
	space.WorldID = op.WorldID
	space.ThumbnailURL = assets.ThumbnailURL
	space.PanoramaURL = assets.PanoramaURL
	space.SplatLowURL = assets.SplatLowURL
	space.SplatMedURL = assets.SplatMedURL
	space.SplatHighURL = assets.SplatHighURL
	space.MeshURL = assets.MeshURL
	space.ErrorMessage = ""

	if err := storage.DB.Model(space).Updates(map[string]interface{}{
		"status":         space.Status,
		"world_id":       space.WorldID,
		"thumbnail_url":  space.ThumbnailURL,
		"panorama_url":   space.PanoramaURL,
		"splat_low_url":  space.SplatLowURL,
		"splat_med_url":  space.SplatMedURL,
		"splat_high_url": space.SplatHighURL,
		"mesh_url":       space.MeshURL,
		"error_message":  "",
	}).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update space"})
		return
	}

	ctx.JSON(iris.Map{"space": space})
}

// ListTeamSpaces lists a team's spaces, newest first, paginated
func ListTeamSpaces(ctx iris.Context) {
	teamID := ctx.Params().Get("teamID")
	if !utils.EnsureTeamMember(ctx, teamID) {
		return
	}

	page, perPage := pageParams(ctx)

	var total int64
	storage.DB.Model(&models.Space{}).Where("team_id = ?", teamID).Count(&total)

	var spaces []models.Space
	if err := storage.DB.Where("team_id = ?", teamID).Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&spaces).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to fetch spaces"})
		return
	}

	utils.JSONPage(ctx, spaces, page, perPage, total)
}

func pageParams(ctx iris.Context) (int, int) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	return page, perPage
}

// GetSpace fetches one space (members only)
func GetSpace(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}
	ctx.JSON(iris.Map{"space": space})
}

// UpdateSpace updates name/address/description
func UpdateSpace(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}

	var input struct {
		Name        string `json:"name" validate:"max=200"`
		Address     string `json:"address" validate:"max=300"`
		Description string `json:"description" validate:"max=2000"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != "" {
		space.Name = input.Name
	}
	if input.Address != "" {
		space.Address = input.Address
	}
	if input.Description != "" {
		space.Description = input.Description
	}

	if err := storage.DB.Save(space).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update space"})
		return
	}

	ctx.JSON(iris.Map{
		"message": "Space updated successfully",
		"space":   space,
	})
}

// DeleteSpace removes a space after deleting its stored objects. An
// object-delete failure is logged but does not keep the row alive;
// orphaned blobs beat undeletable spaces.
func DeleteSpace(ctx iris.Context) {
	space, ok := loadMemberSpace(ctx)
	if !ok {
		return
	}

	for _, key := range services.SpaceObjectKeys(space) {
		if err := storage.DeleteObject(key); err != nil {
			log.Printf("failed to delete object %s: %v", key, err)
		}
	}

	if err := storage.DB.Unscoped().Delete(space).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to delete space"})
		return
	}

	ctx.JSON(iris.Map{"message": "Space deleted successfully"})
}

// loadMemberSpace loads the space in the {id} route param and checks team
// membership; on failure it has already written the response.
func loadMemberSpace(ctx iris.Context) (*models.Space, bool) {
	spaceID := ctx.Params().Get("id")

	var space models.Space
	if err := storage.DB.First(&space, "id = ?", spaceID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Space not found"})
		return nil, false
	}

	if !utils.EnsureTeamMember(ctx, space.TeamID) {
		return nil, false
	}
	return &space, true
}

func failSpace(space *models.Space, message string) {
	space.Status = models.SpaceStatusFailed
	space.ErrorMessage = message
	if err := storage.DB.Model(space).Updates(map[string]interface{}{
		"status":        models.SpaceStatusFailed,
		"error_message": message,
	}).Error; err != nil {
		log.Printf("failed to mark space %s failed: %v", space.ID, err)
	}
}

// decodeBase64Image accepts raw base64 or a data URL
func decodeBase64Image(src string) ([]byte, error) {
	payload := src
	if i := strings.Index(src, ","); i != -1 {
		payload = src[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
