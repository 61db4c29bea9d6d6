// API service for making raw multipart requests to the cloud endpoints
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/desertthunder/lapx/internal/shared"
)

// APIService posts multipart forms to a base URL and returns raw responses.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8765"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the URL every request path is appended to.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *APIResponse) Text() string { return string(r.Body) }

// FormField is one text field of a multipart form. Fields are written in slice order.
type FormField struct {
	Name  string
	Value string
}

// FormFile is the binary part of a multipart form.
type FormFile struct {
	Field    string
	FileName string
	Data     []byte
}

// ProgressReader wraps a reader and reports how much of it has been consumed.
type ProgressReader struct {
	Reader   io.Reader
	Total    int64
	Consumed int64
	OnUpdate func(read, total int64)
}

// Read implements io.Reader, tracking progress and calling OnUpdate.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.Consumed += int64(n)
	if pr.OnUpdate != nil && n > 0 {
		pr.OnUpdate(pr.Consumed, pr.Total)
	}
	return n, err
}

// PostForm sends fields (and file, when non-nil) as multipart/form-data to path.
//
// onProgress, when set, receives the fraction of the request body sent so far in [0,1].
// A non-2xx status is returned as an [shared.ErrNetwork] error alongside the response.
func (a *APIService) PostForm(ctx context.Context, path string, fields []FormField, file *FormFile, onProgress func(float64)) (*APIResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.Name, err)
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	total := int64(body.Len())
	var reader io.Reader = &body
	if onProgress != nil {
		onProgress(0)
		reader = &ProgressReader{
			Reader: &body,
			Total:  total,
			OnUpdate: func(read, total int64) {
				if total > 0 {
					onProgress(float64(read) / float64(total))
				}
			},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiResp, fmt.Errorf("%w: %s returned status %d", shared.ErrNetwork, path, resp.StatusCode)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return apiResp, nil
}
