package geometry

import (
	"math"
	"testing"

	"github.com/medreview-ai/platform/pkg/common/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFromPolygonTwoCornerGroups(t *testing.T) {
	polygon := [][]models.Point{
		{{X: 0.1, Y: 0.2}},
		{{X: 0.3, Y: 0.4}},
	}

	rect := FromPolygon(polygon)

	if !almostEqual(rect.StartX, 0.1) {
		t.Fatalf("StartX = %v, want 0.1", rect.StartX)
	}
	if !almostEqual(rect.WidthX, 0.2) {
		t.Fatalf("WidthX = %v, want 0.2", rect.WidthX)
	}
	if !almostEqual(rect.StartY, 311.6) {
		t.Fatalf("StartY = %v, want 311.6", rect.StartY)
	}
	if !almostEqual(rect.HeightY, 311.6) {
		t.Fatalf("HeightY = %v, want 311.6", rect.HeightY)
	}
}

func TestFromPolygonUsesFirstOfFirstAndLastOfLast(t *testing.T) {
	polygon := [][]models.Point{
		{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.9}},
		{{X: 0.5, Y: 0.5}},
		{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.6}},
	}

	rect := FromPolygon(polygon)

	if !almostEqual(rect.StartX, 0.1) || !almostEqual(rect.StartY, 0.1*RenderPageHeight) {
		t.Fatalf("top-left not taken from first point of first group: %+v", rect)
	}
	if !almostEqual(rect.WidthX, 0.3) {
		t.Fatalf("WidthX = %v, want 0.3", rect.WidthX)
	}
	if !almostEqual(rect.HeightY, 0.5*RenderPageHeight) {
		t.Fatalf("HeightY = %v, want %v", rect.HeightY, 0.5*RenderPageHeight)
	}
}

func TestFromPolygonSingleGroupCollapses(t *testing.T) {
	polygon := [][]models.Point{
		{{X: 0.2, Y: 0.3}, {X: 0.6, Y: 0.7}},
	}

	corners := CornerPoints(polygon)
	if len(corners) != 2 {
		t.Fatalf("expected two corners, got %d", len(corners))
	}

	rect := FromPolygon(polygon)
	if !almostEqual(rect.WidthX, 0.4) {
		t.Fatalf("WidthX = %v, want 0.4", rect.WidthX)
	}
}

func TestFromPolygonDegenerateInputs(t *testing.T) {
	if rect := FromPolygon(nil); rect != (Rectangle{}) {
		t.Fatalf("empty polygon should yield zero rectangle, got %+v", rect)
	}

	single := [][]models.Point{{{X: 0.5, Y: 0.5}}}
	rect := FromPolygon(single)
	if !almostEqual(rect.StartX, 0.5) || !almostEqual(rect.WidthX, 0) || !almostEqual(rect.HeightY, 0) {
		t.Fatalf("single point should anchor a zero-size rectangle, got %+v", rect)
	}
}

func TestFromCornersEmpty(t *testing.T) {
	if rect := FromCorners(nil); rect != (Rectangle{}) {
		t.Fatalf("expected zero rectangle, got %+v", rect)
	}
}
