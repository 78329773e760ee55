package routes

import (
	"net/http"

	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"
	"github.com/kataras/iris/v12"
)

// CreateTour creates a tour with a fresh share token
func CreateTour(ctx iris.Context) {
	var input struct {
		TeamID      string `json:"team_id" validate:"required,uuid"`
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description" validate:"max=2000"`
	}

	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Invalid JSON"})
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Validation failed", "details": err.Error()})
		return
	}

	if !utils.EnsureTeamMember(ctx, input.TeamID) {
		return
	}

	tour := models.Tour{
		TeamID:      input.TeamID,
		CreatorID:   ctx.Values().GetString("userID"),
		Name:        input.Name,
		Description: input.Description,
		ShareToken:  utils.GenerateShortToken(16),
	}
	tour.SetRooms([]models.TourRoom{})

	if err := storage.DB.Create(&tour).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create tour"})
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"message": "Tour created successfully",
		"tour":    tour,
	})
}

// ListTeamTours lists a team's tours, newest first, paginated
func ListTeamTours(ctx iris.Context) {
	teamID := ctx.Params().Get("teamID")
	if !utils.EnsureTeamMember(ctx, teamID) {
		return
	}

	page, perPage := pageParams(ctx)

	var total int64
	storage.DB.Model(&models.Tour{}).Where("team_id = ?", teamID).Count(&total)

	var tours []models.Tour
	if err := storage.DB.Where("team_id = ?", teamID).Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&tours).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to fetch tours"})
		return
	}

	utils.JSONPage(ctx, tours, page, perPage, total)
}

// GetTour fetches one tour (members only)
func GetTour(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}
	ctx.JSON(iris.Map{"tour": tour})
}

// UpdateTour updates name, description and the public flag
func UpdateTour(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	var input struct {
		Name        string `json:"name" validate:"max=200"`
		Description string `json:"description" validate:"max=2000"`
		IsPublic    *bool  `json:"is_public"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Invalid JSON"})
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Validation failed", "details": err.Error()})
		return
	}

	if input.Name != "" {
		tour.Name = input.Name
	}
	if input.Description != "" {
		tour.Description = input.Description
	}
	if input.IsPublic != nil {
		tour.IsPublic = *input.IsPublic
	}

	if err := storage.DB.Save(tour).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update tour"})
		return
	}

	ctx.JSON(iris.Map{
		"message": "Tour updated successfully",
		"tour":    tour,
	})
}

// DeleteTour removes a tour. Spaces are weakly referenced so nothing
// cascades.
func DeleteTour(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	if err := storage.DB.Unscoped().Delete(tour).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to delete tour"})
		return
	}

	ctx.JSON(iris.Map{"message": "Tour deleted successfully"})
}

// AddTourRoom appends a room referencing a space from the same team
func AddTourRoom(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	var input struct {
		SpaceID string `json:"space_id" validate:"required,uuid"`
		Label   string `json:"label" validate:"max=120"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Invalid JSON"})
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Validation failed", "details": err.Error()})
		return
	}

	var space models.Space
	if err := storage.DB.First(&space, "id = ? AND team_id = ?", input.SpaceID, tour.TeamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Space not found in this team"})
		return
	}

	rooms, err := tour.RoomList()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	for _, room := range rooms {
		if room.SpaceID == input.SpaceID {
			ctx.StatusCode(http.StatusConflict)
			ctx.JSON(iris.Map{"error": "Space is already in this tour"})
			return
		}
	}

	rooms = append(rooms, models.TourRoom{SpaceID: input.SpaceID, Label: input.Label})
	if err := saveRooms(ctx, tour, rooms); err != nil {
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"tour": tour})
}

// UpdateTourRooms replaces the full room list (reorder / relabel)
func UpdateTourRooms(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	var input struct {
		Rooms []models.TourRoom `json:"rooms" validate:"required,dive"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Invalid JSON"})
		return
	}
	if err := utils.Validate.Struct(input); err != nil {
		ctx.StatusCode(http.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "Validation failed", "details": err.Error()})
		return
	}

	// Every referenced space must belong to the tour's team
	seen := map[string]bool{}
	for _, room := range input.Rooms {
		if seen[room.SpaceID] {
			ctx.StatusCode(http.StatusBadRequest)
			ctx.JSON(iris.Map{"error": "Duplicate space in rooms", "space_id": room.SpaceID})
			return
		}
		seen[room.SpaceID] = true

		var count int64
		storage.DB.Model(&models.Space{}).Where("id = ? AND team_id = ?", room.SpaceID, tour.TeamID).Count(&count)
		if count == 0 {
			ctx.StatusCode(http.StatusNotFound)
			ctx.JSON(iris.Map{"error": "Space not found in this team", "space_id": room.SpaceID})
			return
		}
	}

	if err := saveRooms(ctx, tour, input.Rooms); err != nil {
		return
	}

	ctx.JSON(iris.Map{"tour": tour})
}

// RemoveTourRoom drops one space from the tour and closes the order gap
func RemoveTourRoom(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	spaceID := ctx.Params().Get("spaceID")
	rooms, err := tour.RoomList()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	kept := rooms[:0]
	removed := false
	for _, room := range rooms {
		if room.SpaceID == spaceID {
			removed = true
			continue
		}
		kept = append(kept, room)
	}
	if !removed {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Space is not in this tour"})
		return
	}

	if err := saveRooms(ctx, tour, kept); err != nil {
		return
	}

	ctx.JSON(iris.Map{"tour": tour})
}

// RotateShareToken replaces the tour's share token, invalidating old links
func RotateShareToken(ctx iris.Context) {
	tour, ok := loadMemberTour(ctx)
	if !ok {
		return
	}

	tour.ShareToken = utils.GenerateShortToken(16)
	if err := storage.DB.Model(tour).Update("share_token", tour.ShareToken).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to rotate share token"})
		return
	}

	ctx.JSON(iris.Map{"share_token": tour.ShareToken})
}

// GetSharedTour serves a public tour by its share token, unauthenticated.
// Only ready spaces are joined in; private tours 404 rather than 403 so
// the token's existence leaks nothing.
func GetSharedTour(ctx iris.Context) {
	token := ctx.Params().Get("token")

	var tour models.Tour
	if err := storage.DB.Where("share_token = ? AND is_public = ?", token, true).First(&tour).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Tour not found"})
		return
	}

	rooms, err := tour.RoomList()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	spaceIDs := make([]string, 0, len(rooms))
	for _, room := range rooms {
		spaceIDs = append(spaceIDs, room.SpaceID)
	}

	spaces := []models.Space{}
	if len(spaceIDs) > 0 {
		if err := storage.DB.Where("id IN ? AND status = ?", spaceIDs, models.SpaceStatusReady).Find(&spaces).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(iris.Map{
		"tour": iris.Map{
			"id":          tour.ID,
			"name":        tour.Name,
			"description": tour.Description,
			"rooms":       rooms,
		},
		"spaces": spaces,
	})
}

func loadMemberTour(ctx iris.Context) (*models.Tour, bool) {
	tourID := ctx.Params().Get("id")

	var tour models.Tour
	if err := storage.DB.First(&tour, "id = ?", tourID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Tour not found"})
		return nil, false
	}

	if !utils.EnsureTeamMember(ctx, tour.TeamID) {
		return nil, false
	}
	return &tour, true
}

func saveRooms(ctx iris.Context, tour *models.Tour, rooms []models.TourRoom) error {
	if err := tour.SetRooms(rooms); err != nil {
		utils.CreateInternalServerError(ctx)
		return err
	}
	if err := storage.DB.Model(tour).Update("rooms", tour.Rooms).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update rooms"})
		return err
	}
	return nil
}
