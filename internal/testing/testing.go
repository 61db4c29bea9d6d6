// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/desertthunder/lapx/internal/media"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
)

// MockImageDecoder is a test double for [media.ImageDecoder].
//
// Paths listed in Fail return their error; every other path decodes to a 1x1 image.
type MockImageDecoder struct {
	mu    sync.Mutex
	Fail  map[string]error
	Calls []string
}

func (m *MockImageDecoder) DecodeImage(ctx context.Context, path string) (*models.Image, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, path)
	m.mu.Unlock()

	if err, ok := m.Fail[path]; ok {
		return nil, err
	}
	return &models.Image{Path: path, Format: "png", Width: 1, Height: 1}, nil
}

// CallCount returns how many decode requests were made.
func (m *MockImageDecoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockAudioDecoder is a test double for [media.AudioDecoder].
type MockAudioDecoder struct {
	mu    sync.Mutex
	Err   error
	Calls []media.Codec
}

func (m *MockAudioDecoder) DecodeAudio(ctx context.Context, path string, codec media.Codec) (*models.AudioClip, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, codec)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &models.AudioClip{Path: path, Codec: codec.String(), SampleRate: 44100, Channels: 2}, nil
}

// CallCount returns how many decode requests were made.
func (m *MockAudioDecoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEnvironment is a test double for the editor host. It reports Steps evenly spaced
// progress values and then returns Err.
type MockEnvironment struct {
	Steps   int
	Err     error
	Entered []*models.Session
}

func (m *MockEnvironment) EnterEditor(ctx context.Context, session *models.Session, onProgress func(float64)) error {
	for i := 1; i <= m.Steps; i++ {
		onProgress(float64(i) / float64(m.Steps))
	}
	if m.Err != nil {
		return m.Err
	}
	m.Entered = append(m.Entered, session)
	return nil
}

// MockPreferences is an in-memory preference store.
type MockPreferences struct {
	mu    sync.Mutex
	Prefs shared.Preferences
	Err   error
}

func (m *MockPreferences) Load() shared.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Prefs
}

func (m *MockPreferences) Update(fn func(*shared.Preferences)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	fn(&m.Prefs)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
