// Package geometry converts rectangles between the PDF native coordinate space
// (origin bottom-left, y grows upwards) and the top-left space exposed to callers.
package geometry

import "math"

// Rect is a rectangle on a page. Page is 1-based; zero means unknown.
type Rect struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FromCorners builds a bottom-left rectangle from the two corners of a PDF Rect
// array. Corners may be given in any order.
func FromCorners(x1, y1, x2, y2 float64) Rect {
	return Rect{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// ToTopLeft converts a bottom-left rectangle into top-left coordinates and rounds
// every coordinate to the nearest integer.
func ToTopLeft(r Rect, pageHeight float64) Rect {
	return Rect{
		Page:   r.Page,
		X:      math.Round(r.X),
		Y:      math.Round(pageHeight - r.Y - r.Height),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// ToBottomLeft is the exact inverse of the unrounded ToTopLeft transform.
func ToBottomLeft(r Rect, pageHeight float64) Rect {
	return Rect{
		Page:   r.Page,
		X:      r.X,
		Y:      pageHeight - r.Y - r.Height,
		Width:  r.Width,
		Height: r.Height,
	}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
