package geom

import (
	"github.com/chewxy/math32"
)

// PolygonIOU returns the mask overlap over union of pixel areas for two
// polygons. When both polygons are axis-aligned boxes we use the exact
// rectangle formula. Otherwise we rasterize over pixel centers of the
// union bounding box with the even-odd rule.
func PolygonIOU(a, b Polygon) float32 {
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	if a.IsAxisAlignedBox() && b.IsAxisAlignedBox() {
		return a.Bounds().IOU(b.Bounds())
	}
	if a.Bounds().Intersection(b.Bounds()).Area() <= 0 {
		return 0
	}
	return rasterIOU(a, b)
}

func rasterIOU(a, b Polygon) float32 {
	bounds := a.Bounds().Union(b.Bounds())
	x0 := int(math32.Floor(bounds.X))
	y0 := int(math32.Floor(bounds.Y))
	x1 := int(math32.Ceil(bounds.X2()))
	y1 := int(math32.Ceil(bounds.Y2()))
	intersection := 0
	union := 0
	for y := y0; y < y1; y++ {
		cy := float32(y) + 0.5
		for x := x0; x < x1; x++ {
			cx := float32(x) + 0.5
			inA := a.Contains(cx, cy)
			inB := b.Contains(cx, cy)
			if inA && inB {
				intersection++
			}
			if inA || inB {
				union++
			}
		}
	}
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}
