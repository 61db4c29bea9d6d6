package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
)

const maxUploadBytes = 64 << 20

// CloudStore keeps uploaded files on an [afero.Fs] under root/<user>/<project>/<file>.
type CloudStore struct {
	fs   afero.Fs
	root string
}

// NewCloudStore creates a store rooted at root on fsys.
func NewCloudStore(fsys afero.Fs, root string) *CloudStore {
	return &CloudStore{fs: fsys, root: root}
}

func cleanSegment(kind, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("%w: invalid %s %q", shared.ErrValidation, kind, s)
	}
	return s, nil
}

func (c *CloudStore) path(form services.CloudForm) (string, error) {
	user, err := cleanSegment("user id", form.UserID)
	if err != nil {
		return "", err
	}
	project, err := cleanSegment("project name", form.ProjectName)
	if err != nil {
		return "", err
	}
	file, err := cleanSegment("file name", form.FileName)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.root, user, project, file), nil
}

// Put stores data for form, replacing any earlier upload.
func (c *CloudStore) Put(form services.CloudForm, data []byte) error {
	path, err := c.path(form)
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create store folder: %w", err)
	}
	if err := afero.WriteFile(c.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return nil
}

// Get returns the stored bytes for form, or [shared.ErrNotFound].
func (c *CloudStore) Get(form services.CloudForm) ([]byte, error) {
	path, err := c.path(form)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(c.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, form.FileName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

// ModTime returns when form's file was last stored, or [shared.ErrNotFound].
func (c *CloudStore) ModTime(form services.CloudForm) (time.Time, error) {
	path, err := c.path(form)
	if err != nil {
		return time.Time{}, err
	}
	info, err := c.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, fmt.Errorf("%w: %s", shared.ErrNotFound, form.FileName)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat stored file: %w", err)
	}
	return info.ModTime(), nil
}

// CloudHandler serves the last-modified, upload and download endpoints over a [CloudStore].
type CloudHandler struct {
	store            *CloudStore
	lastModifiedPath string
	uploadPath       string
	downloadPath     string
	logger           *log.Logger
}

// NewCloudHandler serves store on the endpoint paths named in cfg.
func NewCloudHandler(store *CloudStore, cfg shared.CloudConfig, logger *log.Logger) *CloudHandler {
	return &CloudHandler{
		store:            store,
		lastModifiedPath: cfg.LastModifiedPath,
		uploadPath:       cfg.UploadPath,
		downloadPath:     cfg.DownloadPath,
		logger:           shared.WithLogger(logger, "component", "store"),
	}
}

// Routes implements [Handler].
func (h *CloudHandler) Routes() []string {
	return []string{h.lastModifiedPath, h.uploadPath, h.downloadPath}
}

func formFrom(r *http.Request) services.CloudForm {
	return services.CloudForm{
		UserID:      r.FormValue("UserId"),
		FileName:    r.FormValue("FileName"),
		ProjectName: r.FormValue("ProjectName"),
	}
}

// ServeHTTP implements [http.Handler].
func (h *CloudHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	form := formFrom(r)

	switch r.URL.Path {
	case h.lastModifiedPath:
		h.lastModified(w, form)
	case h.uploadPath:
		h.upload(w, r, form)
	case h.downloadPath:
		h.download(w, form)
	default:
		http.NotFound(w, r)
	}
}

func (h *CloudHandler) lastModified(w http.ResponseWriter, form services.CloudForm) {
	modTime, err := h.store.ModTime(form)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		io.WriteString(w, services.NotUploadedBefore)
	case err != nil:
		h.fail(w, err)
	default:
		io.WriteString(w, services.FormatLastModified(modTime))
	}
}

func (h *CloudHandler) upload(w http.ResponseWriter, r *http.Request, form services.CloudForm) {
	file, _, err := r.FormFile("upload")
	if err != nil {
		http.Error(w, "missing upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	if err := h.store.Put(form, data); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Debug("stored upload", "user", form.UserID, "project", form.ProjectName, "file", form.FileName, "bytes", len(data))
	io.WriteString(w, "OK")
}

func (h *CloudHandler) download(w http.ResponseWriter, form services.CloudForm) {
	data, err := h.store.Get(form)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		io.WriteString(w, services.NotFoundBody)
	case err != nil:
		h.fail(w, err)
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}
}

func (h *CloudHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrValidation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error("store error", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	logger = shared.WithLogger(logger, "component", "server")
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down server", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

// NewCloudRouter builds the emulator's router: logging and recovery around a [CloudHandler].
func NewCloudRouter(store *CloudStore, cfg shared.CloudConfig, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(NewCloudHandler(store, cfg, logger))
	return router
}
