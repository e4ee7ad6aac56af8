// Package snapshots polls the camera vendor cloud for thumbnail images and
// uploads them to S3-compatible object storage, where the property's cameras
// page reads them. The assistant core never serves images itself; camera
// access through the assistant is list-and-link only.
package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/robfig/cron/v3"
)

// Config configures the snapshot poller.
type Config struct {
	// Enabled turns the poller on. Off by default; most deployments run it
	// on a separate host with a residential IP.
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression or @every duration (default: "@every 60s").
	Schedule string `yaml:"schedule"`

	// Camera configures the camera vendor cloud API.
	Camera CameraConfig `yaml:"camera"`

	// Storage configures the S3-compatible upload target.
	Storage StorageConfig `yaml:"storage"`

	// FreshEvery requests a fresh snapshot (instead of the cached thumbnail)
	// every Nth poll (default: 5). The vendor rate-limits snap requests.
	FreshEvery int `yaml:"fresh_every"`
}

// CameraConfig configures the camera vendor API.
type CameraConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig configures the S3-compatible object store.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Bucket is the target bucket (default: "housephotos").
	Bucket string `yaml:"bucket"`

	// Prefix is the object key prefix (default: "cameras").
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns snapshot poller defaults.
func DefaultConfig() Config {
	return Config{
		Schedule:   "@every 60s",
		FreshEvery: 5,
		Storage: StorageConfig{
			Bucket: "housephotos",
			Prefix: "cameras",
		},
	}
}

// uploader is the storage surface the poller needs; satisfied by
// *minio.Client and by test fakes.
type uploader interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Poller fetches camera thumbnails on a schedule and uploads them.
type Poller struct {
	cfg     Config
	camera  *vendorClient
	storage uploader
	cron    *cron.Cron
	polls   int
	logger  *slog.Logger
}

// NewPoller creates a snapshot poller. The storage client is built from
// config; pass a nil-checked result into Start.
func NewPoller(cfg Config, logger *slog.Logger) (*Poller, error) {
	store, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return newPoller(cfg, store, logger), nil
}

func newPoller(cfg Config, store uploader, logger *slog.Logger) *Poller {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 60s"
	}
	if cfg.FreshEvery <= 0 {
		cfg.FreshEvery = 5
	}
	return &Poller{
		cfg:     cfg,
		camera:  newVendorClient(cfg.Camera),
		storage: store,
		cron:    cron.New(),
		logger:  logger.With("component", "snapshots"),
	}
}

// Start schedules polling. Returns an error for an invalid schedule.
func (p *Poller) Start(ctx context.Context) error {
	_, err := p.cron.AddFunc(p.cfg.Schedule, func() {
		if err := p.PollOnce(ctx); err != nil {
			p.logger.Error("poll failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling snapshots: %w", err)
	}
	p.cron.Start()
	p.logger.Info("snapshot poller started", "schedule", p.cfg.Schedule)
	return nil
}

// Stop halts scheduling and waits for a running poll to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// PollOnce fetches every camera's latest thumbnail and uploads it. The
// first camera's image is also uploaded under the primary "latest" key.
// Every FreshEvery-th poll additionally requests fresh snapshots.
func (p *Poller) PollOnce(ctx context.Context) error {
	cameras, err := p.camera.Cameras(ctx)
	if err != nil {
		return fmt.Errorf("listing cameras: %w", err)
	}

	for i, cam := range cameras {
		jpeg, err := p.camera.Thumbnail(ctx, cam.ID)
		if err != nil {
			p.logger.Warn("no thumbnail", "camera", cam.Name, "error", err)
			continue
		}

		key := fmt.Sprintf("%s/%s-latest.jpg", p.cfg.Storage.Prefix, safeName(cam.Name))
		if err := p.upload(ctx, key, jpeg); err != nil {
			p.logger.Error("upload failed", "camera", cam.Name, "error", err)
			continue
		}

		if i == 0 {
			primary := p.cfg.Storage.Prefix + "/latest.jpg"
			if err := p.upload(ctx, primary, jpeg); err != nil {
				p.logger.Error("primary upload failed", "error", err)
			}
		}
	}

	p.polls++
	if p.polls%p.cfg.FreshEvery == 0 {
		for _, cam := range cameras {
			if err := p.camera.RequestSnapshot(ctx, cam.ID); err != nil {
				p.logger.Warn("snapshot request failed", "camera", cam.Name, "error", err)
			}
		}
	}

	return nil
}

func (p *Poller) upload(ctx context.Context, key string, jpeg []byte) error {
	_, err := p.storage.PutObject(ctx, p.cfg.Storage.Bucket, key,
		bytes.NewReader(jpeg), int64(len(jpeg)), minio.PutObjectOptions{
			ContentType:  "image/jpeg",
			CacheControl: "max-age=30",
		})
	if err == nil {
		p.logger.Info("uploaded snapshot", "key", key, "bytes", len(jpeg))
	}
	return err
}

// safeName turns a camera display name into an object-key-safe slug.
func safeName(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

// ---------- Vendor client ----------

// VendorCamera is one camera known to the vendor cloud.
type VendorCamera struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// vendorClient talks to the camera vendor's cloud API.
type vendorClient struct {
	cfg    CameraConfig
	client *http.Client
}

func newVendorClient(cfg CameraConfig) *vendorClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &vendorClient{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

// Cameras lists the account's cameras.
func (c *vendorClient) Cameras(ctx context.Context) ([]VendorCamera, error) {
	var out struct {
		Cameras []VendorCamera `json:"cameras"`
	}
	if err := c.get(ctx, "/cameras", &out); err != nil {
		return nil, err
	}
	return out.Cameras, nil
}

// Thumbnail fetches the camera's cached thumbnail JPEG.
func (c *vendorClient) Thumbnail(ctx context.Context, cameraID string) ([]byte, error) {
	raw, err := c.getRaw(ctx, "/cameras/"+cameraID+"/thumbnail")
	if err != nil {
		return nil, err
	}
	// The vendor serves a tiny placeholder while a camera is offline.
	if len(raw) < 100 {
		return nil, fmt.Errorf("thumbnail too small (%d bytes)", len(raw))
	}
	return raw, nil
}

// RequestSnapshot asks the camera to capture a fresh image. The new image
// shows up as the thumbnail on a later poll.
func (c *vendorClient) RequestSnapshot(ctx context.Context, cameraID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/cameras/"+cameraID+"/snapshot", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("snapshot request returned %d", resp.StatusCode)
	}
	return nil
}

func (c *vendorClient) get(ctx context.Context, path string, out any) error {
	raw, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *vendorClient) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("camera API returned %d", resp.StatusCode)
	}
	return raw, nil
}
