package pick

// TooltipOffset is the gap in pixels between pointer and tooltip.
const TooltipOffset = 15

// Point is a screen position in pixels.
type Point struct{ X, Y float64 }

// Size is a screen extent in pixels.
type Size struct{ W, H float64 }

// PlaceTooltip positions a tooltip of size tip next to the pointer, flipping
// to the opposite side on each axis where it would overflow the viewport.
func PlaceTooltip(pointer Point, tip, viewport Size) Point {
	p := Point{X: pointer.X + TooltipOffset, Y: pointer.Y + TooltipOffset}
	if p.X+tip.W > viewport.W {
		p.X = pointer.X - tip.W - TooltipOffset
	}
	if p.Y+tip.H > viewport.H {
		p.Y = pointer.Y - tip.H - TooltipOffset
	}
	return p
}
