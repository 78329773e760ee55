package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/ITstollman/3Dtourio-back/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// mockAuthMiddleware stands in for the identity-provider middleware
func mockAuthMiddleware(ctx iris.Context) {
	ctx.Values().Set("userID", "user-1")
	ctx.Values().Set("identity", &utils.Identity{
		Subject:     "user-1",
		Email:       "user-1@example.com",
		DisplayName: "Test User",
	})
	ctx.Next()
}

// setupTestDB points storage.DB at a per-test in-memory sqlite database
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Space{},
		&models.Tour{},
	); err != nil {
		t.Fatal(err)
	}
	storage.DB = db
}

func seedTeam(t *testing.T, kind, ownerID string, inviteEnabled bool) models.Team {
	t.Helper()
	team := models.Team{
		Name:          "Seeded",
		Kind:          kind,
		OwnerID:       ownerID,
		InviteCode:    utils.GenerateInviteCode(),
		InviteEnabled: inviteEnabled,
	}
	if err := storage.DB.Create(&team).Error; err != nil {
		t.Fatal(err)
	}
	owner := models.TeamMember{TeamID: team.ID, UserID: ownerID, Role: models.TeamRoleOwner}
	if err := storage.DB.Create(&owner).Error; err != nil {
		t.Fatal(err)
	}
	return team
}

// buildTeamTestApp creates a minimal Iris app with the team routes
func buildTeamTestApp(t *testing.T) *iris.Application {
	t.Helper()
	app := iris.New()

	user := app.Party("/api/user", mockAuthMiddleware)
	{
		user.Post("/onboard", OnboardUser)
	}
	team := app.Party("/api/team", mockAuthMiddleware)
	{
		team.Post("/", CreateTeam)
		team.Post("/join", JoinTeam)
		team.Delete("/{id}", DeleteTeam)
		team.Post("/{id}/leave", LeaveTeam)
		team.Get("/{id}/invite", GetInviteCode)
	}

	if err := app.Build(); err != nil {
		t.Fatal(err)
	}
	return app
}

func doJSON(app *iris.Application, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestCreateTeamRejectsInvalidJSON(t *testing.T) {
	app := buildTeamTestApp(t)

	resp := doJSON(app, http.MethodPost, "/api/team", "{not json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", resp.Code)
	}
}

func TestCreateTeamRequiresName(t *testing.T) {
	app := buildTeamTestApp(t)

	resp := doJSON(app, http.MethodPost, "/api/team", `{"name":""}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.Code)
	}
}

func TestJoinTeamRequiresCode(t *testing.T) {
	app := buildTeamTestApp(t)

	resp := doJSON(app, http.MethodPost, "/api/team/join", `{}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing invite code, got %d", resp.Code)
	}
}

// Onboarding must persist the personal team with invites disabled; a
// column default on the flag used to flip the stored value to true.
func TestOnboardPersistsPersonalTeamInvitesDisabled(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)

	resp := doJSON(app, http.MethodPost, "/api/user/onboard", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from onboarding, got %d: %s", resp.Code, resp.Body.String())
	}

	var team models.Team
	if err := storage.DB.Where("owner_id = ? AND kind = ?", "user-1", models.TeamKindPersonal).First(&team).Error; err != nil {
		t.Fatalf("personal team was not created: %v", err)
	}
	if team.InviteEnabled {
		t.Fatal("personal team was stored with invites enabled")
	}

	// The owner-facing endpoint must report the stored flag
	resp = doJSON(app, http.MethodGet, "/api/team/"+team.ID+"/invite", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from invite endpoint, got %d", resp.Code)
	}
	var payload struct {
		InviteEnabled bool `json:"invite_enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.InviteEnabled {
		t.Fatal("invite endpoint reports invites enabled for a personal team")
	}

	// Onboarding twice must not create a second personal team
	doJSON(app, http.MethodPost, "/api/user/onboard", "")
	var count int64
	storage.DB.Model(&models.Team{}).Where("owner_id = ? AND kind = ?", "user-1", models.TeamKindPersonal).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one personal team, got %d", count)
	}
}

func TestPersonalTeamCannotBeDeletedOrLeft(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)
	team := seedTeam(t, models.TeamKindPersonal, "user-1", false)

	resp := doJSON(app, http.MethodDelete, "/api/team/"+team.ID, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting a personal team, got %d", resp.Code)
	}

	resp = doJSON(app, http.MethodPost, "/api/team/"+team.ID+"/leave", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 leaving a personal team, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count)
	if count != 1 {
		t.Fatalf("membership changed despite rejections, got %d rows", count)
	}
}

func TestOwnerCannotLeaveOrganizationTeam(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)
	team := seedTeam(t, models.TeamKindOrganization, "user-1", true)

	resp := doJSON(app, http.MethodPost, "/api/team/"+team.ID+"/leave", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 when owner leaves, got %d", resp.Code)
	}
}

func TestMemberCanLeaveOrganizationTeam(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)
	team := seedTeam(t, models.TeamKindOrganization, "owner-2", true)
	member := models.TeamMember{TeamID: team.ID, UserID: "user-1", Role: models.TeamRoleMember}
	if err := storage.DB.Create(&member).Error; err != nil {
		t.Fatal(err)
	}

	resp := doJSON(app, http.MethodPost, "/api/team/"+team.ID+"/leave", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 when a member leaves, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	storage.DB.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", team.ID, "user-1").Count(&count)
	if count != 0 {
		t.Fatal("membership row survived leaving")
	}
}

func TestDeleteTeamBlockedWhileOwningResources(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)
	team := seedTeam(t, models.TeamKindOrganization, "user-1", true)

	space := models.Space{TeamID: team.ID, CreatorID: "user-1", Name: "Kitchen", Status: models.SpaceStatusUploading}
	if err := storage.DB.Create(&space).Error; err != nil {
		t.Fatal(err)
	}

	resp := doJSON(app, http.MethodDelete, "/api/team/"+team.ID, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 while team owns a space, got %d", resp.Code)
	}

	if err := storage.DB.Unscoped().Delete(&space).Error; err != nil {
		t.Fatal(err)
	}

	resp = doJSON(app, http.MethodDelete, "/api/team/"+team.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 once the team is empty, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	storage.DB.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count)
	if count != 0 {
		t.Fatal("members survived team deletion")
	}
}

func TestJoinTeamRespectsInviteToggle(t *testing.T) {
	setupTestDB(t)
	app := buildTeamTestApp(t)
	team := seedTeam(t, models.TeamKindOrganization, "owner-3", false)

	body := fmt.Sprintf(`{"code":%q}`, team.InviteCode)

	resp := doJSON(app, http.MethodPost, "/api/team/join", body)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while invites are disabled, got %d", resp.Code)
	}

	if err := storage.DB.Model(&team).Update("invite_enabled", true).Error; err != nil {
		t.Fatal(err)
	}

	resp = doJSON(app, http.MethodPost, "/api/team/join", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 once invites are enabled, got %d: %s", resp.Code, resp.Body.String())
	}

	var member models.TeamMember
	if err := storage.DB.Where("team_id = ? AND user_id = ?", team.ID, "user-1").First(&member).Error; err != nil {
		t.Fatal("membership row missing after join")
	}
	if member.Role != models.TeamRoleMember {
		t.Fatalf("expected member role, got %q", member.Role)
	}
}
