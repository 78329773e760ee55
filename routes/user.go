package routes

import (
	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm/clause"
)

// OnboardUser upserts the caller's profile from the verified identity and
// creates their personal team if it does not exist yet. Idempotent: safe
// to call on every login.
func OnboardUser(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")
	identity := utils.CurrentIdentity(ctx)
	if identity == nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	user := models.User{
		ID:          userID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
	}
	if err := storage.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "avatar_url", "updated_at"}),
	}).Create(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Personal team bootstrap
	var membership models.TeamMember
	err := storage.DB.
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("team_members.user_id = ? AND teams.kind = ?", userID, models.TeamKindPersonal).
		First(&membership).Error
	if err != nil {
		name := identity.DisplayName
		if name == "" {
			name = "Personal"
		}
		team := models.Team{
			Name:          name,
			Kind:          models.TeamKindPersonal,
			OwnerID:       userID,
			InviteCode:    utils.GenerateInviteCode(),
			InviteEnabled: false, // personal teams never accept invites
		}
		if err := storage.DB.Create(&team).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		owner := models.TeamMember{TeamID: team.ID, UserID: userID, Role: models.TeamRoleOwner}
		if err := storage.DB.Create(&owner).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	respondWithProfile(ctx, userID, iris.StatusOK)
}

// GetMe returns the caller's profile and team memberships.
func GetMe(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")
	respondWithProfile(ctx, userID, iris.StatusOK)
}

func respondWithProfile(ctx iris.Context, userID string, status int) {
	var user models.User
	if err := storage.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var memberships []models.TeamMember
	if err := storage.DB.Preload("Team").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	teams := make([]iris.Map, 0, len(memberships))
	for _, m := range memberships {
		teams = append(teams, iris.Map{"team": m.Team, "role": m.Role})
	}

	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"user": user, "teams": teams})
}
