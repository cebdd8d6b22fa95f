package display

// Point is a position in global screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in global screen coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p falls inside r. Edges on the min side are
// inside, edges on the max side are outside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// CenteredAtTop returns a w by h rectangle horizontally centered at the
// top edge of r.
func (r Rect) CenteredAtTop(w, h float64) Rect {
	return Rect{X: r.X + (r.W-w)/2, Y: r.Y, W: w, H: h}
}
