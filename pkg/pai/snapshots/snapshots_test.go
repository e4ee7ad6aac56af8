package snapshots

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minio/minio-go/v7"
)

type fakeUploader struct {
	objects map[string][]byte
}

func (f *fakeUploader) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Front Door", "front-door"},
		{"Pool/Deck Cam", "pool-deck-cam"},
		{"garage", "garage"},
	}
	for _, tt := range tests {
		if got := safeName(tt.in); got != tt.want {
			t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPollOnceUploadsThumbnails(t *testing.T) {
	jpeg := bytes.Repeat([]byte{0xff}, 500)

	snapRequests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/cameras" && r.Method == http.MethodGet:
			w.Write([]byte(`{"cameras":[{"id":"c1","name":"Front Door"},{"id":"c2","name":"Back Yard"}]}`))
		case r.URL.Path == "/cameras/c1/thumbnail":
			w.Write(jpeg)
		case r.URL.Path == "/cameras/c2/thumbnail":
			// Offline camera: tiny placeholder body.
			w.Write([]byte("x"))
		case r.Method == http.MethodPost:
			snapRequests++
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Camera.BaseURL = srv.URL
	cfg.FreshEvery = 1 // fresh snapshot on every poll

	store := &fakeUploader{}
	p := newPoller(cfg, store, testLogger())

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	// Camera 1 uploads under its slug and as the primary latest.
	if _, ok := store.objects["housephotos/cameras/front-door-latest.jpg"]; !ok {
		t.Error("missing front-door upload")
	}
	if _, ok := store.objects["housephotos/cameras/latest.jpg"]; !ok {
		t.Error("missing primary latest upload")
	}

	// Camera 2's placeholder thumbnail is skipped.
	if _, ok := store.objects["housephotos/cameras/back-yard-latest.jpg"]; ok {
		t.Error("placeholder thumbnail should not upload")
	}

	if snapRequests != 2 {
		t.Errorf("snapRequests = %d, want 2", snapRequests)
	}
}

func TestPollOnceListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Camera.BaseURL = srv.URL

	p := newPoller(cfg, &fakeUploader{}, testLogger())
	if err := p.PollOnce(context.Background()); err == nil {
		t.Fatal("expected error when camera list fails")
	}
}
