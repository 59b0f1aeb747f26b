package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"gonum.org/v1/gonum/num/quat"
)

// maxLineBytes bounds a single encoded sample.
const maxLineBytes = 64 * 1024

// wirePose is a pose on the wire: position in metres, rotation as
// [w, x, y, z].
type wirePose struct {
	Pos [3]float64 `json:"pos"`
	Rot [4]float64 `json:"rot"`
}

type wireSample struct {
	TimeNanos int64      `json:"time_ns"`
	Hand      wirePose   `json:"hand"`
	Head      *wirePose  `json:"head,omitempty"`
	Body      *wirePose  `json:"body,omitempty"`
	LeftTip   [3]float64 `json:"left_tip"`
	RightTip  [3]float64 `json:"right_tip"`
}

func (w wirePose) pose() (geom.Pose, error) {
	for _, v := range w.Pos {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return geom.Pose{}, fmt.Errorf("non-finite position %v", w.Pos)
		}
	}
	q := quat.Number{Real: w.Rot[0], Imag: w.Rot[1], Jmag: w.Rot[2], Kmag: w.Rot[3]}
	return geom.NewPose(geom.Vec{X: w.Pos[0], Y: w.Pos[1], Z: w.Pos[2]}, q), nil
}

func toWire(p geom.Pose) wirePose {
	q := p.Orientation
	return wirePose{
		Pos: [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		Rot: [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
	}
}

func vec(a [3]float64) geom.Vec { return geom.Vec{X: a[0], Y: a[1], Z: a[2]} }

// DecodeSample parses one JSON-encoded sample. Orientations are normalised;
// a missing head or body pose is the identity pose at the origin. A sample
// without time_ns has the zero time, which the tick loop replaces with its
// own step.
func DecodeSample(line []byte) (Sample, error) {
	var w wireSample
	if err := json.Unmarshal(line, &w); err != nil {
		return Sample{}, fmt.Errorf("decode sample: %w", err)
	}
	hand, err := w.Hand.pose()
	if err != nil {
		return Sample{}, fmt.Errorf("decode sample hand: %w", err)
	}
	smp := Sample{
		RealHand:      hand,
		Head:          geom.NewPose(geom.Zero, geom.Identity()),
		Body:          geom.NewPose(geom.Zero, geom.Identity()),
		LeftIndexTip:  vec(w.LeftTip),
		RightIndexTip: vec(w.RightTip),
	}
	if w.TimeNanos != 0 {
		smp.Time = time.Unix(0, w.TimeNanos).UTC()
	}
	if w.Head != nil {
		if smp.Head, err = w.Head.pose(); err != nil {
			return Sample{}, fmt.Errorf("decode sample head: %w", err)
		}
	}
	if w.Body != nil {
		if smp.Body, err = w.Body.pose(); err != nil {
			return Sample{}, fmt.Errorf("decode sample body: %w", err)
		}
	}
	return smp, nil
}

// EncodeSample renders smp as one JSON line without the trailing newline.
func EncodeSample(smp Sample) ([]byte, error) {
	head, body := toWire(smp.Head), toWire(smp.Body)
	w := wireSample{
		Hand:     toWire(smp.RealHand),
		Head:     &head,
		Body:     &body,
		LeftTip:  [3]float64{smp.LeftIndexTip.X, smp.LeftIndexTip.Y, smp.LeftIndexTip.Z},
		RightTip: [3]float64{smp.RightIndexTip.X, smp.RightIndexTip.Y, smp.RightIndexTip.Z},
	}
	if !smp.Time.IsZero() {
		w.TimeNanos = smp.Time.UnixNano()
	}
	return json.Marshal(w)
}

// LineSource decodes newline-delimited JSON samples from a reader. Blank
// lines are skipped; malformed lines are counted and skipped.
type LineSource struct {
	scanner *bufio.Scanner
	bad     int
}

// NewLineSource reads samples from r.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &LineSource{scanner: sc}
}

func (l *LineSource) Next(ctx context.Context) (Sample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				return Sample{}, fmt.Errorf("read sample line: %w", err)
			}
			return Sample{}, io.EOF
		}
		line := l.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		smp, err := DecodeSample(line)
		if err != nil {
			l.bad++
			continue
		}
		return smp, nil
	}
}

// Skipped is the number of malformed lines skipped so far.
func (l *LineSource) Skipped() int { return l.bad }

// IsEnd reports whether err marks the normal end of a source.
func IsEnd(err error) bool {
	return errors.Is(err, io.EOF)
}
