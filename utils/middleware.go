package utils

import (
	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/kataras/iris/v12"
)

// TeamRole returns the caller's role in a team, or an error if they are
// not a member.
func TeamRole(userID, teamID string) (string, error) {
	var member models.TeamMember
	if err := storage.DB.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error; err != nil {
		return "", err
	}
	return member.Role, nil
}

// EnsureTeamMember writes a 403 and returns false unless the caller
// belongs to the team.
func EnsureTeamMember(ctx iris.Context, teamID string) bool {
	userID := ctx.Values().GetString("userID")
	if _, err := TeamRole(userID, teamID); err != nil {
		CreateForbidden(ctx)
		return false
	}
	return true
}

// EnsureTeamOwner writes a 403 and returns false unless the caller owns
// the team.
func EnsureTeamOwner(ctx iris.Context, teamID string) bool {
	userID := ctx.Values().GetString("userID")
	role, err := TeamRole(userID, teamID)
	if err != nil || role != models.TeamRoleOwner {
		CreateForbidden(ctx)
		return false
	}
	return true
}
