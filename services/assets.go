package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ITstollman/3Dtourio-back/models"
	"github.com/ITstollman/3Dtourio-back/storage"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
)

// Recompression bounds for stored imagery
const (
	thumbnailMaxEdge = 1024
	panoramaMaxEdge  = 4096
	roomImageMaxEdge = 4096
	jpegQuality      = 80
)

// Download size cap per asset. Splats and meshes for a single room stay
// well under this.
const maxAssetBytes = 512 << 20

// AssetPipeline downloads a completed world's assets, recompresses the
// imagery and re-uploads everything to object storage under the owning
// space's key prefix.
type AssetPipeline struct {
	client *http.Client
}

// NewAssetPipeline creates a new asset pipeline instance
func NewAssetPipeline() *AssetPipeline {
	return &AssetPipeline{
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// ProcessedAssets holds the storage URLs written back to the space.
type ProcessedAssets struct {
	ThumbnailURL string
	PanoramaURL  string
	SplatLowURL  string
	SplatMedURL  string
	SplatHighURL string
	MeshURL      string
}

type assetJob struct {
	name    string // for error messages
	source  string
	key     string
	isImage bool
	maxEdge int

	url string
	err error
}

// Process fans out downloads of every asset in the manifest, transforms
// them and uploads the results. Any single failure fails the whole batch;
// there are no partial-ready spaces.
func (p *AssetPipeline) Process(space *models.Space, world *WorldManifest) (*ProcessedAssets, error) {
	prefix := AssetKeyPrefix(space.TeamID, space.ID)
	jobs := []*assetJob{
		{name: "thumbnail", source: world.ThumbnailURL, key: prefix + "thumbnail.jpg", isImage: true, maxEdge: thumbnailMaxEdge},
		{name: "panorama", source: world.PanoramaURL, key: prefix + "panorama.jpg", isImage: true, maxEdge: panoramaMaxEdge},
		{name: "splat_low", source: world.SplatLowURL, key: prefix + "splat_low.spz"},
		{name: "splat_med", source: world.SplatMedURL, key: prefix + "splat_med.spz"},
		{name: "splat_high", source: world.SplatHighURL, key: prefix + "splat_high.spz"},
		{name: "mesh", source: world.MeshURL, key: prefix + "mesh.glb"},
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job *assetJob) {
			defer wg.Done()
			job.url, job.err = p.processOne(job)
		}(job)
	}
	wg.Wait()

	for _, job := range jobs {
		if job.err != nil {
			return nil, fmt.Errorf("%s: %w", job.name, job.err)
		}
	}

	return &ProcessedAssets{
		ThumbnailURL: jobs[0].url,
		PanoramaURL:  jobs[1].url,
		SplatLowURL:  jobs[2].url,
		SplatMedURL:  jobs[3].url,
		SplatHighURL: jobs[4].url,
		MeshURL:      jobs[5].url,
	}, nil
}

func (p *AssetPipeline) processOne(job *assetJob) (string, error) {
	if job.source == "" {
		return "", fmt.Errorf("manifest has no source URL")
	}

	data, err := p.download(job.source)
	if err != nil {
		return "", err
	}

	data, contentType, err := transformAsset(data, job.isImage, job.maxEdge)
	if err != nil {
		return "", err
	}

	return storage.UploadObject(job.key, data, contentType)
}

func (p *AssetPipeline) download(url string) ([]byte, error) {
	resp, err := p.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
}

// transformAsset recompresses images to bounded JPEGs and passes binary
// payloads through untouched with a sniffed content type.
func transformAsset(data []byte, isImage bool, maxEdge int) ([]byte, string, error) {
	if !isImage {
		return data, sniffContentType(data), nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func sniffContentType(data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}

// StoreRoomImage recompresses an uploaded room photo and uploads it under
// the space's image prefix, returning its public URL.
func (p *AssetPipeline) StoreRoomImage(space *models.Space, index int, data []byte) (string, error) {
	compressed, contentType, err := transformAsset(data, true, roomImageMaxEdge)
	if err != nil {
		return "", err
	}
	return storage.UploadObject(RoomImageKey(space.TeamID, space.ID, index), compressed, contentType)
}

// AssetKeyPrefix is where a space's generated assets live.
func AssetKeyPrefix(teamID, spaceID string) string {
	return fmt.Sprintf("teams/%s/spaces/%s/assets/", teamID, spaceID)
}

// RoomImageKey is where the n-th uploaded room photo lives.
func RoomImageKey(teamID, spaceID string, index int) string {
	return fmt.Sprintf("teams/%s/spaces/%s/images/%d.jpg", teamID, spaceID, index)
}

// SpaceObjectKeys enumerates every object a space may have stored, used
// for the delete cascade. Keys are deterministic so no listing API is
// needed.
func SpaceObjectKeys(space *models.Space) []string {
	keys := make([]string, 0, space.ImageCount+6)
	for i := 0; i < space.ImageCount; i++ {
		keys = append(keys, RoomImageKey(space.TeamID, space.ID, i))
	}
	prefix := AssetKeyPrefix(space.TeamID, space.ID)
	for _, name := range []string{"thumbnail.jpg", "panorama.jpg", "splat_low.spz", "splat_med.spz", "splat_high.spz", "mesh.glb"} {
		keys = append(keys, prefix+name)
	}
	return keys
}
