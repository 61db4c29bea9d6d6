package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lapx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// NotUploadedBefore is the last-modified body for a file the store has never received.
	NotUploadedBefore = "Not Uploaded Before"
	// NotFoundBody is the download body for a file the store does not hold.
	NotFoundBody = "F A Q!"
	// tickPadding turns the wire value into 100ns ticks.
	tickPadding    = "0000000"
	ticksPerSecond = 10_000_000

	uploadField = "upload"
)

// LastModified is the parsed answer of the last-modified endpoint.
type LastModified struct {
	Never bool
	Time  time.Time
}

func (lm LastModified) String() string {
	if lm.Never {
		return NotUploadedBefore
	}
	return lm.Time.Local().Format("2006/01/02 15:04:05")
}

// ParseLastModified decodes a last-modified response body.
//
// The body is either [NotUploadedBefore] or a decimal number that becomes a count of
// 100ns ticks since the Unix epoch once seven zero digits are appended.
func ParseLastModified(body string) (LastModified, error) {
	body = strings.TrimSpace(body)
	if body == NotUploadedBefore {
		return LastModified{Never: true}, nil
	}

	ticks, err := strconv.ParseInt(body+tickPadding, 10, 64)
	if err != nil {
		return LastModified{}, fmt.Errorf("%w: bad last-modified value %q", shared.ErrFormat, body)
	}
	return LastModified{Time: time.Unix(ticks/ticksPerSecond, ticks%ticksPerSecond*100).UTC()}, nil
}

// FormatLastModified renders t in the wire format understood by [ParseLastModified].
func FormatLastModified(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// CloudForm identifies one remote file.
type CloudForm struct {
	UserID      string
	FileName    string
	ProjectName string
}

func (f CloudForm) fields() []FormField {
	return []FormField{
		{Name: "UserId", Value: f.UserID},
		{Name: "FileName", Value: f.FileName},
		{Name: "ProjectName", Value: f.ProjectName},
	}
}

// CloudClient speaks the three-endpoint cloud storage protocol.
type CloudClient struct {
	api              *APIService
	limiter          *rate.Limiter
	lastModifiedPath string
	uploadPath       string
	downloadPath     string
	logger           *log.Logger
}

// NewCloudClient builds a client from cfg. A nil httpClient gets one with cfg's timeout.
func NewCloudClient(cfg shared.CloudConfig, httpClient *http.Client, logger *log.Logger) *CloudClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &CloudClient{
		api:              NewAPIService(cfg.BaseURL, httpClient),
		limiter:          rate.NewLimiter(limit, 1),
		lastModifiedPath: cfg.LastModifiedPath,
		uploadPath:       cfg.UploadPath,
		downloadPath:     cfg.DownloadPath,
		logger:           shared.WithLogger(logger, "component", "cloud"),
	}
}

// BaseURL returns the remote store address.
func (c *CloudClient) BaseURL() string { return c.api.BaseURL() }

func (c *CloudClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return nil
}

// GetLastModified asks when form's file was last uploaded.
func (c *CloudClient) GetLastModified(ctx context.Context, form CloudForm) (LastModified, error) {
	if err := c.wait(ctx); err != nil {
		return LastModified{}, err
	}

	resp, err := c.api.PostForm(ctx, c.lastModifiedPath, form.fields(), nil, nil)
	if err != nil {
		return LastModified{}, err
	}
	return ParseLastModified(resp.Text())
}

// Upload stores data as form's file.
func (c *CloudClient) Upload(ctx context.Context, form CloudForm, data []byte, onProgress func(float64)) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	file := &FormFile{Field: uploadField, FileName: form.FileName, Data: data}
	_, err := c.api.PostForm(ctx, c.uploadPath, form.fields(), file, onProgress)
	if err != nil {
		return err
	}
	c.logger.Debug("upload complete", "file", form.FileName, "project", form.ProjectName, "bytes", len(data))
	return nil
}

// Download fetches form's file. found is false when the store answers [NotFoundBody].
func (c *CloudClient) Download(ctx context.Context, form CloudForm) (data []byte, found bool, err error) {
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}

	resp, err := c.api.PostForm(ctx, c.downloadPath, form.fields(), nil, nil)
	if err != nil {
		return nil, false, err
	}
	if resp.Text() == NotFoundBody {
		return nil, false, nil
	}
	return resp.Body, true, nil
}
