package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// WorldGenService wraps the image-to-3D provider's REST API: submit a
// generation job, poll its long-running operation, fetch the resulting
// world's asset manifest. All three calls are single-shot; the provider
// owns retries.
type WorldGenService struct {
	client *http.Client
}

// NewWorldGenService creates a new generation provider client instance
func NewWorldGenService() *WorldGenService {
	return &WorldGenService{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Operation is the provider's async job handle.
type Operation struct {
	ID      string `json:"operation_id"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
	WorldID string `json:"world_id,omitempty"`
}

// WorldManifest lists the generated assets for a completed world.
type WorldManifest struct {
	ID           string `json:"world_id"`
	ThumbnailURL string `json:"thumbnail_url"`
	PanoramaURL  string `json:"panorama_url"`
	SplatLowURL  string `json:"splat_low_url"`
	SplatMedURL  string `json:"splat_med_url"`
	SplatHighURL string `json:"splat_high_url"`
	MeshURL      string `json:"mesh_url"`
}

// SubmitGeneration starts a generation job from uploaded room photos and
// returns the operation id to poll.
func (s *WorldGenService) SubmitGeneration(name string, imageURLs []string) (string, error) {
	if len(imageURLs) == 0 {
		return "", errors.New("at least one image is required")
	}

	body := map[string]interface{}{
		"name":       name,
		"image_urls": imageURLs,
	}

	var op Operation
	if err := s.do(http.MethodPost, "/v1/worlds:generate", body, &op); err != nil {
		return "", err
	}
	if op.ID == "" {
		return "", errors.New("provider returned no operation id")
	}
	return op.ID, nil
}

// GetOperation polls a long-running operation once.
func (s *WorldGenService) GetOperation(operationID string) (*Operation, error) {
	var op Operation
	if err := s.do(http.MethodGet, "/v1/operations/"+operationID, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetWorld fetches the asset manifest of a completed world.
func (s *WorldGenService) GetWorld(worldID string) (*WorldManifest, error) {
	var world WorldManifest
	if err := s.do(http.MethodGet, "/v1/worlds/"+worldID, nil, &world); err != nil {
		return nil, err
	}
	return &world, nil
}

func (s *WorldGenService) do(method, path string, body interface{}, out interface{}) error {
	baseURL := strings.TrimSuffix(os.Getenv("WORLDGEN_API_URL"), "/")
	if baseURL == "" {
		return errors.New("WORLDGEN_API_URL is not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", os.Getenv("WORLDGEN_API_KEY"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("generation provider returned status %d: %s", resp.StatusCode, string(snippet))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
