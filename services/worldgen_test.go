package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeProvider mimics the generation API's three endpoints
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/worlds:generate":
			var body struct {
				Name      string   `json:"name"`
				ImageURLs []string `json:"image_urls"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.ImageURLs) == 0 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(Operation{ID: "op-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/operations/op-1":
			json.NewEncoder(w).Encode(Operation{ID: "op-1", Done: true, WorldID: "world-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/operations/op-failed":
			json.NewEncoder(w).Encode(Operation{ID: "op-failed", Done: true, Error: "not enough parallax"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/worlds/world-1":
			json.NewEncoder(w).Encode(WorldManifest{
				ID:           "world-1",
				ThumbnailURL: "https://cdn.example.com/thumb.png",
				PanoramaURL:  "https://cdn.example.com/pano.png",
				SplatLowURL:  "https://cdn.example.com/low.spz",
				SplatMedURL:  "https://cdn.example.com/med.spz",
				SplatHighURL: "https://cdn.example.com/high.spz",
				MeshURL:      "https://cdn.example.com/mesh.glb",
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestWorldGenLifecycle(t *testing.T) {
	provider := fakeProvider(t)
	defer provider.Close()

	os.Setenv("WORLDGEN_API_URL", provider.URL)
	os.Setenv("WORLDGEN_API_KEY", "test-key")

	svc := NewWorldGenService()

	opID, err := svc.SubmitGeneration("Living room", []string{"https://storage.example.com/0.jpg"})
	require.NoError(t, err)
	require.Equal(t, "op-1", opID)

	op, err := svc.GetOperation(opID)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Equal(t, "world-1", op.WorldID)
	require.Empty(t, op.Error)

	world, err := svc.GetWorld(op.WorldID)
	require.NoError(t, err)
	require.Equal(t, "world-1", world.ID)
	require.NotEmpty(t, world.SplatHighURL)
	require.NotEmpty(t, world.MeshURL)
}

func TestWorldGenFailedOperation(t *testing.T) {
	provider := fakeProvider(t)
	defer provider.Close()

	os.Setenv("WORLDGEN_API_URL", provider.URL)
	os.Setenv("WORLDGEN_API_KEY", "test-key")

	svc := NewWorldGenService()

	op, err := svc.GetOperation("op-failed")
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Equal(t, "not enough parallax", op.Error)
}

func TestSubmitGenerationRequiresImages(t *testing.T) {
	svc := NewWorldGenService()
	_, err := svc.SubmitGeneration("Empty", nil)
	require.Error(t, err)
}

func TestWorldGenRejectsBadKey(t *testing.T) {
	provider := fakeProvider(t)
	defer provider.Close()

	os.Setenv("WORLDGEN_API_URL", provider.URL)
	os.Setenv("WORLDGEN_API_KEY", "wrong-key")

	svc := NewWorldGenService()
	_, err := svc.GetOperation("op-1")
	require.Error(t, err)
}
