package models

import (
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/lapx/internal/shared"
)

// ChartProperty is the header derived from where a chart lives on disk.
type ChartProperty struct {
	ChartPath   string
	ChartFolder string
	ChartName   string
}

// NewChartProperty derives folder and name (file name without extension) from chartPath.
func NewChartProperty(chartPath string) ChartProperty {
	base := filepath.Base(chartPath)
	return ChartProperty{
		ChartPath:   chartPath,
		ChartFolder: filepath.Dir(chartPath),
		ChartName:   strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Chart is the opaque chart payload.
type Chart struct {
	Raw string
}

func (c *Chart) String() string {
	if c == nil {
		return ""
	}
	return c.Raw
}

// Image is a decoded background layer.
type Image struct {
	Path   string
	Format string
	Width  int
	Height int
	Pixels image.Image
}

// AudioClip is decoded (or probed) music.
type AudioClip struct {
	Path       string
	Codec      string
	Size       int64
	SampleRate int
	Channels   int
	Duration   time.Duration
	Title      string
	Artist     string
}

// Background holds the rendered layers and an optional background video.
type Background struct {
	Color     *Image
	Gray      *Image
	Linear    *Image
	VideoPath string
}

// Set stores img in the slot for role.
func (b *Background) Set(role LayerRole, img *Image) {
	switch role {
	case LayerColor:
		b.Color = img
	case LayerGray:
		b.Gray = img
	case LayerLinear:
		b.Linear = img
	}
}

// Get returns the image stored for role.
func (b *Background) Get(role LayerRole) *Image {
	switch role {
	case LayerColor:
		return b.Color
	case LayerGray:
		return b.Gray
	case LayerLinear:
		return b.Linear
	}
	return nil
}

// LoadFlag marks one successful load step.
type LoadFlag uint8

const (
	ChartLoaded LoadFlag = 1 << iota
	BackgroundLoaded
	BackgroundGrayLoaded
	BackgroundLinearLoaded
	MusicLoaded
	VideoDetected
)

// BackgroundFlag returns the flag recorded when the layer for role loads.
func BackgroundFlag(role LayerRole) LoadFlag {
	switch role {
	case LayerGray:
		return BackgroundGrayLoaded
	case LayerLinear:
		return BackgroundLinearLoaded
	default:
		return BackgroundLoaded
	}
}

// LoadResult records which load steps succeeded. Flags can only be added.
type LoadResult struct {
	flags LoadFlag
}

// Mark records f as succeeded.
func (r *LoadResult) Mark(f LoadFlag) { r.flags |= f }

// Has reports whether every flag in f has been marked.
func (r LoadResult) Has(f LoadFlag) bool { return r.flags&f == f }

func (r LoadResult) ChartLoaded() bool            { return r.Has(ChartLoaded) }
func (r LoadResult) BackgroundLoaded() bool       { return r.Has(BackgroundLoaded) }
func (r LoadResult) BackgroundGrayLoaded() bool   { return r.Has(BackgroundGrayLoaded) }
func (r LoadResult) BackgroundLinearLoaded() bool { return r.Has(BackgroundLinearLoaded) }
func (r LoadResult) MusicLoaded() bool            { return r.Has(MusicLoaded) }
func (r LoadResult) VideoDetected() bool          { return r.Has(VideoDetected) }

// Session is an opened project: chart text plus its loaded media.
type Session struct {
	ID         string
	Property   ChartProperty
	Chart      *Chart
	Background Background
	Music      *AudioClip
	Result     LoadResult
	OpenedAt   time.Time
	released   bool
}

// NewSession creates an empty session for the chart at chartPath.
func NewSession(chartPath string) *Session {
	return &Session{
		ID:       shared.GenerateID(),
		Property: NewChartProperty(chartPath),
		OpenedAt: time.Now(),
	}
}

// ChartText returns the current chart payload.
func (s *Session) ChartText() string {
	if s == nil {
		return ""
	}
	return s.Chart.String()
}

// Release drops decoded media so it can be collected. Safe to call more than once.
func (s *Session) Release() {
	if s == nil || s.released {
		return
	}
	s.Background = Background{VideoPath: s.Background.VideoPath}
	s.Music = nil
	s.released = true
}

// Released reports whether Release has been called.
func (s *Session) Released() bool { return s.released }
