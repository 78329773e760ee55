package routes

import (
	"net/http"

	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"
	"github.com/kataras/iris/v12"
)

// CreateTeam creates a new organization team with the caller as owner
func CreateTeam(ctx iris.Context) {
	var input struct {
		Name string `json:"name" validate:"required,max=120"`
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

	userID := ctx.Values().GetString("userID")

	team := models.Team{
		Name:          input.Name,
		Kind:          models.TeamKindOrganization,
		OwnerID:       userID,
		InviteCode:    utils.GenerateInviteCode(),
		InviteEnabled: true,
	}

	if err := storage.DB.Create(&team).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create team"})
		return
	}

	// The creator is the first member
	owner := models.TeamMember{
		TeamID: team.ID,
		UserID: userID,
		Role:   models.TeamRoleOwner,
	}
	if err := storage.DB.Create(&owner).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create owner membership"})
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"message": "Team created successfully",
		"team":    team,
	})
}

// GetMyTeams lists the caller's teams with their role in each
func GetMyTeams(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")

	var memberships []models.TeamMember
	if err := storage.DB.Preload("Team").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to fetch teams"})
		return
	}

	teams := make([]iris.Map, 0, len(memberships))
	for _, m := range memberships {
		teams = append(teams, iris.Map{"team": m.Team, "role": m.Role})
	}

	ctx.JSON(iris.Map{"teams": teams})
}

// GetTeam returns a team with its members (members only)
func GetTeam(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamMember(ctx, teamID) {
		return
	}

	var team models.Team
	if err := storage.DB.Preload("Members.User").First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	ctx.JSON(iris.Map{"team": team})
}

// UpdateTeam renames a team (owner only)
func UpdateTeam(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	var input struct {
		Name string `json:"name" validate:"required,max=120"`
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

	team.Name = input.Name
	if err := storage.DB.Save(&team).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update team"})
		return
	}

	ctx.JSON(iris.Map{
		"message": "Team updated successfully",
		"team":    team,
	})
}

// DeleteTeam deletes an organization team (owner only). Personal teams
// and teams that still own spaces or tours cannot be deleted.
func DeleteTeam(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	if team.Kind == models.TeamKindPersonal {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Personal teams cannot be deleted"})
		return
	}

	var spaceCount, tourCount int64
	storage.DB.Model(&models.Space{}).Where("team_id = ?", teamID).Count(&spaceCount)
	storage.DB.Model(&models.Tour{}).Where("team_id = ?", teamID).Count(&tourCount)
	if spaceCount > 0 || tourCount > 0 {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Team still owns spaces or tours", "spaces": spaceCount, "tours": tourCount})
		return
	}

	if err := storage.DB.Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to remove members"})
		return
	}
	if err := storage.DB.Delete(&team).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to delete team"})
		return
	}

	ctx.JSON(iris.Map{"message": "Team deleted successfully"})
}

// LeaveTeam removes the caller's own membership. Owners cannot leave (they
// must delete the team) and personal teams cannot be left.
func LeaveTeam(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	userID := ctx.Values().GetString("userID")

	role, err := utils.TeamRole(userID, teamID)
	if err != nil {
		utils.CreateForbidden(ctx)
		return
	}

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	if team.Kind == models.TeamKindPersonal {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Personal teams cannot be left"})
		return
	}
	if role == models.TeamRoleOwner {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Owners cannot leave their own team"})
		return
	}

	if err := storage.DB.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{}).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to leave team"})
		return
	}

	ctx.JSON(iris.Map{"message": "Left team successfully"})
}

// RemoveTeamMember removes a member from the team (owner only, not self)
func RemoveTeamMember(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	memberUserID := ctx.Params().Get("userID")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	callerID := ctx.Values().GetString("userID")
	if memberUserID == callerID {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Owners cannot remove themselves"})
		return
	}

	result := storage.DB.Where("team_id = ? AND user_id = ?", teamID, memberUserID).Delete(&models.TeamMember{})
	if result.Error != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to remove member"})
		return
	}
	if result.RowsAffected == 0 {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Member not found"})
		return
	}

	ctx.JSON(iris.Map{"message": "Member removed successfully"})
}

// RotateInviteCode replaces the team's invite code (owner only)
func RotateInviteCode(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	team.InviteCode = utils.GenerateInviteCode()
	if err := storage.DB.Save(&team).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to rotate invite code"})
		return
	}

	ctx.JSON(iris.Map{"invite_code": team.InviteCode, "invite_enabled": team.InviteEnabled})
}

// ToggleInvites enables or disables joining by invite code (owner only)
func ToggleInvites(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	var input struct {
		Enabled *bool `json:"enabled" validate:"required"`
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

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	if team.Kind == models.TeamKindPersonal {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Personal teams do not accept invites"})
		return
	}

	team.InviteEnabled = *input.Enabled
	if err := storage.DB.Save(&team).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to update invites"})
		return
	}

	ctx.JSON(iris.Map{"invite_enabled": team.InviteEnabled})
}

// GetInviteCode returns the current invite code (owner only)
func GetInviteCode(ctx iris.Context) {
	teamID := ctx.Params().Get("id")
	if !utils.EnsureTeamOwner(ctx, teamID) {
		return
	}

	var team models.Team
	if err := storage.DB.First(&team, "id = ?", teamID).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Team not found"})
		return
	}

	ctx.JSON(iris.Map{"invite_code": team.InviteCode, "invite_enabled": team.InviteEnabled})
}

// JoinTeam adds the caller to the team matching the invite code
func JoinTeam(ctx iris.Context) {
	var input struct {
		Code string `json:"code" validate:"required"`
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

	var team models.Team
	if err := storage.DB.Where("invite_code = ? AND kind = ?", input.Code, models.TeamKindOrganization).First(&team).Error; err != nil {
		ctx.StatusCode(http.StatusNotFound)
		ctx.JSON(iris.Map{"error": "Invalid invite code"})
		return
	}

	if !team.InviteEnabled {
		ctx.StatusCode(http.StatusForbidden)
		ctx.JSON(iris.Map{"error": "Invites are disabled for this team"})
		return
	}

	userID := ctx.Values().GetString("userID")

	var existing models.TeamMember
	if err := storage.DB.Where("team_id = ? AND user_id = ?", team.ID, userID).First(&existing).Error; err == nil {
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "Already a member of this team"})
		return
	}

	member := models.TeamMember{
		TeamID: team.ID,
		UserID: userID,
		Role:   models.TeamRoleMember,
	}
	if err := storage.DB.Create(&member).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to join team"})
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"message": "Joined team successfully",
		"team":    team,
	})
}
