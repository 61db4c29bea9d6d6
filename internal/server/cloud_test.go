package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

func testConfig(baseURL string) shared.CloudConfig {
	cfg := shared.DefaultConfig().Cloud
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 0
	cfg.TimeoutSeconds = 5
	return cfg
}

func multipartRequest(t *testing.T, path string, fields map[string]string, upload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if upload != nil {
		part, err := mw.CreateFormFile("upload", fields["FileName"])
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		part.Write(upload)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCloudStore(t *testing.T) {
	form := services.CloudForm{UserID: "device", ProjectName: "Demo", FileName: "chart.txt"}

	t.Run("PutGet", func(t *testing.T) {
		store := NewCloudStore(afero.NewMemMapFs(), "/store")
		if err := store.Put(form, []byte("hello")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		data, err := store.Get(form)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("expected hello, got %q", data)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		store := NewCloudStore(afero.NewMemMapFs(), "/store")
		if _, err := store.Get(form); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if _, err := store.ModTime(form); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		store := NewCloudStore(afero.NewMemMapFs(), "/store")
		bad := []services.CloudForm{
			{UserID: "..", ProjectName: "Demo", FileName: "chart.txt"},
			{UserID: "device", ProjectName: "a/b", FileName: "chart.txt"},
			{UserID: "device", ProjectName: "Demo", FileName: ""},
		}
		for _, f := range bad {
			if err := store.Put(f, nil); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("%+v: expected validation error, got %v", f, err)
			}
		}
	})
}

func TestCloudHandler(t *testing.T) {
	fields := map[string]string{"UserId": "device", "ProjectName": "Demo", "FileName": "chart.txt"}

	setup := func() (afero.Fs, http.Handler) {
		fsys := afero.NewMemMapFs()
		return fsys, NewCloudRouter(NewCloudStore(fsys, "/store"), testConfig(""), nil)
	}

	cfg := testConfig("")

	t.Run("LastModifiedNeverUploaded", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, cfg.LastModifiedPath, fields, nil))
		if rec.Body.String() != services.NotUploadedBefore {
			t.Errorf("expected sentinel, got %q", rec.Body.String())
		}
	})

	t.Run("LastModifiedSeconds", func(t *testing.T) {
		fsys, router := setup()
		router.ServeHTTP(httptest.NewRecorder(), multipartRequest(t, cfg.UploadPath, fields, []byte("x")))

		stamp := time.Unix(1700000000, 0)
		if err := fsys.Chtimes("/store/device/Demo/chart.txt", stamp, stamp); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, cfg.LastModifiedPath, fields, nil))
		if rec.Body.String() != "1700000000" {
			t.Errorf("expected 1700000000, got %q", rec.Body.String())
		}
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, cfg.DownloadPath, fields, nil))
		if rec.Body.String() != services.NotFoundBody {
			t.Errorf("expected sentinel, got %q", rec.Body.String())
		}
	})

	t.Run("UploadWithoutFile", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, cfg.UploadPath, fields, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("BadForm", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, cfg.DownloadPath, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidSegment", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		bad := map[string]string{"UserId": "..", "ProjectName": "Demo", "FileName": "chart.txt"}
		router.ServeHTTP(rec, multipartRequest(t, cfg.DownloadPath, bad, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("GetNotAllowed", func(t *testing.T) {
		_, router := setup()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.DownloadPath, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestSyncClientRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := testConfig("")
	srv := httptest.NewServer(NewCloudRouter(NewCloudStore(fsys, "/store"), cfg, nil))
	defer srv.Close()
	cfg.BaseURL = srv.URL

	ws := models.NewWorkspace()
	session := models.NewSession("/songs/demo/chart.txt")
	session.Chart = &models.Chart{Raw: `{"events":[],"eos":12}`}
	ws.Commit(&models.Project{Name: "Demo", Designer: "me", ChartPath: "/songs/demo/chart.txt"}, "/songs/demo/Demo.lap", session)

	client := services.NewSyncClient(services.NewCloudClient(cfg, nil, nil), ws, "device", nil, nil, nil)
	ctx := context.Background()

	lm, err := client.QueryLastModified(ctx, models.TransferChart)
	if err != nil {
		t.Fatalf("QueryLastModified failed: %v", err)
	}
	if !lm.Never {
		t.Errorf("expected never uploaded, got %v", lm)
	}

	_, found, err := client.Download(ctx, models.TransferChart)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if found {
		t.Error("expected nothing stored yet")
	}

	before := time.Now().Add(-time.Second)
	result, err := client.Upload(ctx, models.TransferChart, []byte(session.ChartText()), nil)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !result.Sent || result.Bytes != len(session.ChartText()) {
		t.Errorf("unexpected result %+v", result)
	}
	if result.LastModified.Never || result.LastModified.Time.Before(before.Truncate(time.Second)) {
		t.Errorf("expected fresh last-modified, got %v", result.LastModified)
	}

	text, found, err := client.Download(ctx, models.TransferChart)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !found || text != session.ChartText() {
		t.Errorf("expected uploaded chart back, got found=%v text=%q", found, text)
	}

	if _, err := fsys.Stat("/store/device/Demo/" + models.TransferChart.FileName()); err != nil {
		t.Errorf("expected file in store: %v", err)
	}
}
