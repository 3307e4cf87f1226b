package mot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box in pixel coordinates: top-left corner plus size.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Center returns geometric center of rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Area returns width*height
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// Union returns the smallest rectangle containing both r and other
func (r Rectangle) Union(other Rectangle) Rectangle {
	x1 := minFloat64(r.X, other.X)
	y1 := minFloat64(r.Y, other.Y)
	x2 := maxFloat64(r.X+r.Width, other.X+other.Width)
	y2 := maxFloat64(r.Y+r.Height, other.Y+other.Height)
	return Rectangle{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

// DistanceTo returns euclidean distance to other point
func (p Point) DistanceTo(other Point) float64 {
	return euclideanDistance(p, other)
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}
