package transform

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"
	"sync"
)

// Artifact is one derived raster ready for upload.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Artifacts is the output of one Render.
type Artifacts struct {
	Cropped Artifact
	Full    Artifact
}

// Session is the state of one crop interaction. It is safe for concurrent
// use: gestures may update it while a Render is in flight.
type Session struct {
	mu     sync.Mutex
	src    image.Image
	format string
	name   string
	params Params
}

// NewSession validates and decodes the selected file.
func NewSession(name, contentType string, data []byte) (*Session, error) {
	if err := Intake(contentType, data); err != nil {
		return nil, err
	}
	src, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Session{
		src:    src,
		format: format,
		name:   name,
		params: Params{Scale: 1},
	}, nil
}

// SourceName is the name of the file the session was opened from.
func (s *Session) SourceName() string { return s.name }

// Format is the decoded source format, e.g. "jpeg" or "png".
func (s *Session) Format() string { return s.format }

// SourceSize returns the decoded pixel dimensions.
func (s *Session) SourceSize() (int, int) {
	b := s.src.Bounds()
	return b.Dx(), b.Dy()
}

// Params returns the current placement.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Pan moves the source by (dx, dy) viewport pixels.
func (s *Session) Pan(dx, dy float64) {
	if !finite(dx) || !finite(dy) {
		return
	}
	s.mu.Lock()
	s.params.OffsetX += dx
	s.params.OffsetY += dy
	s.mu.Unlock()
}

// SetOffset places the source at an absolute offset from the centre.
func (s *Session) SetOffset(x, y float64) {
	if !finite(x) || !finite(y) {
		return
	}
	s.mu.Lock()
	s.params.OffsetX, s.params.OffsetY = x, y
	s.mu.Unlock()
}

// SetScale sets the zoom and returns the value actually applied.
func (s *Session) SetScale(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Scale = ClampScale(v, s.params.Scale)
	return s.params.Scale
}

// Zoom multiplies the current scale by factor, as a pinch gesture does.
func (s *Session) Zoom(factor float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Scale = ClampScale(s.params.Scale*factor, s.params.Scale)
	return s.params.Scale
}

// DrawRect returns the current placement in viewport coordinates.
func (s *Session) DrawRect() Rect {
	w, h := s.SourceSize()
	return DrawRect(w, h, s.Params())
}

// ClampScale bounds v to [MinScale, MaxScale]. NaN keeps the current value.
func ClampScale(v, current float64) float64 {
	if math.IsNaN(v) {
		v = current
	}
	return math.Min(MaxScale, math.Max(MinScale, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Render produces both artifacts from a snapshot of the current placement.
// The work runs on its own goroutine; if ctx ends first Render returns
// ctx.Err() and the result is discarded.
func (s *Session) Render(ctx context.Context) (*Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.Params()

	type result struct {
		a   *Artifacts
		err error
	}
	done := make(chan result, 1)

	go func() {
		a, err := s.render(p)
		done <- result{a: a, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.a, r.err
	}
}

func (s *Session) render(p Params) (*Artifacts, error) {
	base := strings.TrimSuffix(filepath.Base(s.name), filepath.Ext(s.name))
	if base == "" || base == "." {
		base = "memory"
	}

	cropped := Crop(s.src, p)
	croppedData, err := EncodeJPEG(cropped)
	if err != nil {
		return nil, fmt.Errorf("cropped artifact: %w", err)
	}

	full := Full(s.src)
	fullData, err := EncodeJPEG(full)
	if err != nil {
		return nil, fmt.Errorf("full artifact: %w", err)
	}

	return &Artifacts{
		Cropped: Artifact{
			Name:        base + "-cropped.jpg",
			ContentType: ContentTypeJPEG,
			Data:        croppedData,
			Width:       cropped.Bounds().Dx(),
			Height:      cropped.Bounds().Dy(),
		},
		Full: Artifact{
			Name:        base + "-full.jpg",
			ContentType: ContentTypeJPEG,
			Data:        fullData,
			Width:       full.Bounds().Dx(),
			Height:      full.Bounds().Dy(),
		},
	}, nil
}
