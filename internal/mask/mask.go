// Package mask holds the heart-shaped clip region shared by every card.
//
// The shape is authored once as path data in a 24x24 view box and is
// rasterized on demand to an anti-aliased alpha mask of any square size.
package mask

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/vector"
)

// ViewBox is the edge length of the square coordinate space of HeartPath.
const ViewBox = 24.0

// HeartPath is the heart outline in absolute M/L/C/Z commands.
const HeartPath = "M12,21.35L10.55,20.03C5.4,15.36 2,12.27 2,8.5C2,5.41 4.42,3 7.5,3" +
	"C9.24,3 10.91,3.81 12,5.08C13.09,3.81 14.76,3 16.5,3C19.58,3 22,5.41 22,8.5" +
	"C22,12.27 18.6,15.36 13.45,20.03L12,21.35Z"

// curveSteps is the number of line segments used to flatten one cubic.
const curveSteps = 24

type Point struct {
	X, Y float64
}

// Segment is one drawing command. Pts holds 1 point for M and L,
// 3 points (two controls and the end point) for C, and none for Z.
type Segment struct {
	Op  byte
	Pts []Point
}

// Geometry is an immutable closed path plus cached rasterizations.
type Geometry struct {
	viewBox float64
	segs    []Segment
	poly    []Point

	mu    sync.Mutex
	cache map[int]*image.Alpha
}

var (
	heartOnce sync.Once
	heart     *Geometry
)

// Heart returns the process-wide heart geometry.
func Heart() *Geometry {
	heartOnce.Do(func() {
		g, err := Parse(HeartPath, ViewBox)
		if err != nil {
			panic(fmt.Sprintf("mask: invalid heart path: %v", err))
		}
		heart = g
	})
	return heart
}

// Parse builds a Geometry from absolute path data using M, L, C and Z.
func Parse(path string, viewBox float64) (*Geometry, error) {
	if viewBox <= 0 {
		return nil, fmt.Errorf("view box must be positive, got %v", viewBox)
	}

	tokens := tokenize(path)
	var segs []Segment
	var op byte
	i := 0

	readPoint := func() (Point, error) {
		if i+1 >= len(tokens) {
			return Point{}, fmt.Errorf("unexpected end of path data")
		}
		x, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return Point{}, fmt.Errorf("bad coordinate %q: %w", tokens[i], err)
		}
		y, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return Point{}, fmt.Errorf("bad coordinate %q: %w", tokens[i+1], err)
		}
		i += 2
		return Point{X: x, Y: y}, nil
	}

	for i < len(tokens) {
		if t := tokens[i]; len(t) == 1 && isCommand(t[0]) {
			op = t[0]
			i++
			if op == 'Z' || op == 'z' {
				segs = append(segs, Segment{Op: 'Z'})
				continue
			}
		} else if op == 0 {
			return nil, fmt.Errorf("path must start with a command, got %q", t)
		}

		switch op {
		case 'M', 'L':
			p, err := readPoint()
			if err != nil {
				return nil, err
			}
			segs = append(segs, Segment{Op: op, Pts: []Point{p}})
			if op == 'M' {
				// Extra coordinate pairs after M are implicit L commands.
				op = 'L'
			}
		case 'C':
			pts := make([]Point, 3)
			for k := range pts {
				p, err := readPoint()
				if err != nil {
					return nil, err
				}
				pts[k] = p
			}
			segs = append(segs, Segment{Op: 'C', Pts: pts})
		default:
			return nil, fmt.Errorf("unsupported path command %q", op)
		}
	}

	if len(segs) == 0 || segs[0].Op != 'M' {
		return nil, fmt.Errorf("path must start with M")
	}

	return &Geometry{
		viewBox: viewBox,
		segs:    segs,
		poly:    flatten(segs),
		cache:   make(map[int]*image.Alpha),
	}, nil
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'L', 'C', 'Z', 'z':
		return true
	}
	return false
}

// tokenize splits path data into command letters and numbers.
func tokenize(path string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range path {
		switch {
		case r == ',' || r == ' ' || r == '\n' || r == '\t':
			flush()
		case r == '-' && b.Len() > 0:
			flush()
			b.WriteRune(r)
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			if r == 'e' || r == 'E' {
				b.WriteRune(r)
				continue
			}
			flush()
			out = append(out, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func flatten(segs []Segment) []Point {
	var poly []Point
	var cur Point
	for _, s := range segs {
		switch s.Op {
		case 'M', 'L':
			cur = s.Pts[0]
			poly = append(poly, cur)
		case 'C':
			p0, p1, p2, p3 := cur, s.Pts[0], s.Pts[1], s.Pts[2]
			for k := 1; k <= curveSteps; k++ {
				t := float64(k) / curveSteps
				mt := 1 - t
				poly = append(poly, Point{
					X: mt*mt*mt*p0.X + 3*mt*mt*t*p1.X + 3*mt*t*t*p2.X + t*t*t*p3.X,
					Y: mt*mt*mt*p0.Y + 3*mt*mt*t*p1.Y + 3*mt*t*t*p2.Y + t*t*t*p3.Y,
				})
			}
			cur = p3
		}
	}
	return poly
}

// Bounds returns the bounding box of the flattened outline in view box units.
func (g *Geometry) Bounds() (lo, hi Point) {
	lo = Point{X: math.Inf(1), Y: math.Inf(1)}
	hi = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range g.poly {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Scale returns the factor mapping view box units onto a size x size canvas.
func (g *Geometry) Scale(size int) float64 {
	return float64(size) / g.viewBox
}

// Contains reports whether the view box point (x, y) lies inside the
// outline, using the even-odd rule on the flattened polygon.
func (g *Geometry) Contains(x, y float64) bool {
	inside := false
	n := len(g.poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := g.poly[i], g.poly[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Rasterize returns an anti-aliased size x size coverage mask. The result
// is cached and shared; callers must treat it as read-only.
func (g *Geometry) Rasterize(size int) *image.Alpha {
	if size <= 0 {
		return image.NewAlpha(image.Rect(0, 0, 0, 0))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.cache[size]; ok {
		return m
	}

	k := float32(g.Scale(size))
	z := vector.NewRasterizer(size, size)
	for _, s := range g.segs {
		switch s.Op {
		case 'M':
			z.MoveTo(float32(s.Pts[0].X)*k, float32(s.Pts[0].Y)*k)
		case 'L':
			z.LineTo(float32(s.Pts[0].X)*k, float32(s.Pts[0].Y)*k)
		case 'C':
			z.CubeTo(
				float32(s.Pts[0].X)*k, float32(s.Pts[0].Y)*k,
				float32(s.Pts[1].X)*k, float32(s.Pts[1].Y)*k,
				float32(s.Pts[2].X)*k, float32(s.Pts[2].Y)*k,
			)
		case 'Z':
			z.ClosePath()
		}
	}

	m := image.NewAlpha(image.Rect(0, 0, size, size))
	z.DrawOp = draw.Src
	z.Draw(m, m.Bounds(), image.Opaque, image.Point{})

	g.cache[size] = m
	return m
}
