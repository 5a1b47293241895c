package geom

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrGeometry is returned for degenerate or invalid shapes: a box that
// clamps to nothing, a polygon with fewer than 3 vertices, or a polygon
// whose area is effectively zero.
var ErrGeometry = errors.New("Degenerate or invalid geometry")

// Polygons with an area at or below this are considered degenerate.
const MinPolygonArea = 1e-3

// Polygon is an ordered list of vertices in absolute pixel space.
type Polygon []Point

// Area returns the absolute shoelace area of the polygon.
func (p Polygon) Area() float32 {
	if len(p) < 3 {
		return 0
	}
	sum := float32(0)
	j := len(p) - 1
	for i := range p {
		sum += (p[j].X + p[i].X) * (p[j].Y - p[i].Y)
		j = i
	}
	return math32.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding rectangle of the polygon.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = math32.Min(minX, pt.X)
		minY = math32.Min(minY, pt.Y)
		maxX = math32.Max(maxX, pt.X)
		maxY = math32.Max(maxY, pt.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Flat returns the polygon as [x1,y1,x2,y2,...], the layout used by the
// dataset artifact.
func (p Polygon) Flat() []float32 {
	flat := make([]float32, 0, len(p)*2)
	for _, pt := range p {
		flat = append(flat, pt.X, pt.Y)
	}
	return flat
}

// PolygonFromFlat builds a polygon from a flat [x1,y1,x2,y2,...] list.
func PolygonFromFlat(flat []float32) (Polygon, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: flat polygon has odd length %v", ErrGeometry, len(flat))
	}
	p := make(Polygon, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		p = append(p, Point{X: flat[i], Y: flat[i+1]})
	}
	return p, nil
}

// IsAxisAlignedBox is true for a 4-vertex rectangle with axis-aligned
// edges. These get an exact fast path in IoU computation.
func (p Polygon) IsAxisAlignedBox() bool {
	if len(p) != 4 {
		return false
	}
	return p[0].Y == p[1].Y && p[1].X == p[2].X && p[2].Y == p[3].Y && p[3].X == p[0].X
}

// Contains reports whether (x, y) is inside the polygon, using the
// even-odd crossing rule.
func (p Polygon) Contains(x, y float32) bool {
	inside := false
	j := len(p) - 1
	for i := range p {
		if (p[i].Y > y) != (p[j].Y > y) &&
			x < (p[j].X-p[i].X)*(y-p[i].Y)/(p[j].Y-p[i].Y)+p[i].X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Validate checks that the polygon has at least 3 vertices and a
// positive area. Pre-validated absolute polygons pass through conversion
// unchanged, so Validate is idempotent on its successes.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("%w: polygon has %v vertices, need at least 3", ErrGeometry, len(p))
	}
	if area := p.Area(); area <= MinPolygonArea {
		return fmt.Errorf("%w: polygon area %v is effectively zero", ErrGeometry, area)
	}
	return nil
}

// BoxToPolygon converts a normalized center box (cx, cy, w, h in [0,1])
// into an absolute 4-point pixel polygon, clamped to the image bounds.
// The vertex order is top-left, top-right, bottom-right, bottom-left.
func BoxToPolygon(cx, cy, w, h float32, imageWidth, imageHeight int) (Polygon, error) {
	fw := float32(imageWidth)
	fh := float32(imageHeight)
	x1 := clamp((cx-w/2)*fw, 0, fw)
	x2 := clamp((cx+w/2)*fw, 0, fw)
	y1 := clamp((cy-h/2)*fh, 0, fh)
	y2 := clamp((cy+h/2)*fh, 0, fh)
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil, fmt.Errorf("%w: box (%v,%v,%v,%v) clamps to zero size on %vx%v image", ErrGeometry, cx, cy, w, h, imageWidth, imageHeight)
	}
	return Polygon{
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
		{X: x1, Y: y2},
	}, nil
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
