package geometry

import "github.com/medreview-ai/platform/pkg/common/models"

// RenderPageHeight is the fixed page height, in pixels, the annotation viewer
// renders against. Y coordinates are scaled from fractional ratios into pixels
// while X stays fractional; the viewer multiplies X by the rendered width
// itself. The asymmetry is a contract with the front end, not an oversight.
const RenderPageHeight = 1558

// Rectangle is the persisted geometric form of a supporting location.
// StartX/WidthX are fractional 0..1 ratios, StartY/HeightY are render pixels.
type Rectangle struct {
	StartX  float64 `json:"startX"`
	WidthX  float64 `json:"widthX"`
	StartY  float64 `json:"startY"`
	HeightY float64 `json:"heightY"`
}

// CornerPoints reduces a polygon (ordered groups of points) to its top-left
// and bottom-right corners: the first point of the first group and the last
// point of the last group. The provider emits exactly two ordered corner
// groups; for other arities this is a heuristic, not a true bounding box.
// A single group collapses to its own first and last points. Empty input
// yields nil.
func CornerPoints(polygon [][]models.Point) []models.Point {
	var corners []models.Point

	if len(polygon) > 0 && len(polygon[0]) > 0 {
		corners = append(corners, polygon[0][0])
	}

	last := len(polygon) - 1
	if last >= 0 && len(polygon[last]) > 0 {
		group := polygon[last]
		corners = append(corners, group[len(group)-1])
	}

	return corners
}

// FromPolygon converts a polygon into a render rectangle via CornerPoints.
func FromPolygon(polygon [][]models.Point) Rectangle {
	return FromCorners(CornerPoints(polygon))
}

// FromCorners builds a render rectangle from an ordered corner point list,
// using the first point as top-left and the last as bottom-right. Fewer than
// two points yields a degenerate rectangle anchored at the lone point, or the
// zero value for empty input.
func FromCorners(points []models.Point) Rectangle {
	if len(points) == 0 {
		return Rectangle{}
	}

	topLeft := points[0]
	bottomRight := points[len(points)-1]

	return Rectangle{
		StartX:  topLeft.X,
		WidthX:  bottomRight.X - topLeft.X,
		StartY:  topLeft.Y * RenderPageHeight,
		HeightY: (bottomRight.Y - topLeft.Y) * RenderPageHeight,
	}
}
