package tracking

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
)

// Hand identifies the left or right hand.
type Hand int

const (
	Right Hand = iota
	Left
)

func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

// Other returns the opposite hand.
func (h Hand) Other() Hand {
	if h == Left {
		return Right
	}
	return Left
}

// ParseHand resolves "left" or "right" (case-insensitive).
func ParseHand(s string) (Hand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return Right, fmt.Errorf("unknown hand %q", s)
	}
}

// Sample is one tracking frame.
type Sample struct {
	Time          time.Time
	RealHand      geom.Pose
	Head          geom.Pose
	Body          geom.Pose
	LeftIndexTip  geom.Vec
	RightIndexTip geom.Vec
}

// IndexTip returns the index fingertip of h.
func (s Sample) IndexTip(h Hand) geom.Vec {
	if h == Left {
		return s.LeftIndexTip
	}
	return s.RightIndexTip
}

// Source yields samples in order. Next returns io.EOF after the last sample.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

// SliceSource replays a fixed list of samples.
type SliceSource struct {
	samples []Sample
	pos     int
}

// NewSliceSource returns a source over samples.
func NewSliceSource(samples []Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s.pos >= len(s.samples) {
		return Sample{}, io.EOF
	}
	smp := s.samples[s.pos]
	s.pos++
	return smp, nil
}
