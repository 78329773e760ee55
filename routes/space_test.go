package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kataras/iris/v12"
)

func buildSpaceTestApp(t *testing.T) *iris.Application {
	t.Helper()
	app := iris.New()

	space := app.Party("/api/space", mockAuthMiddleware)
	{
		space.Post("/", CreateSpace)
	}
	tour := app.Party("/api/tour", mockAuthMiddleware)
	{
		tour.Post("/", CreateTour)
	}

	if err := app.Build(); err != nil {
		t.Fatal(err)
	}
	return app
}

func TestCreateSpaceValidatesTeamID(t *testing.T) {
	app := buildSpaceTestApp(t)

	// team_id must be a UUID
	req := httptest.NewRequest(http.MethodPost, "/api/space", strings.NewReader(`{"team_id":"not-a-uuid","name":"Kitchen"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid team id, got %d", resp.Code)
	}
}

func TestCreateSpaceRequiresName(t *testing.T) {
	app := buildSpaceTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/space", strings.NewReader(`{"team_id":"b4b8d9ff-55a3-44a4-9bf6-7a4f383f1c12"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.Code)
	}
}

func TestCreateTourRequiresTeamAndName(t *testing.T) {
	app := buildSpaceTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tour", strings.NewReader(`{"description":"no name"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", resp.Code)
	}
}

func TestDecodeBase64Image(t *testing.T) {
	// data URL prefix is stripped
	data, err := decodeBase64Image("data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected payload: %q", data)
	}

	// raw base64 works too
	data, err = decodeBase64Image("aGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected payload: %q", data)
	}

	if _, err := decodeBase64Image("!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
