package pick

// Emphasis is how strongly a building is drawn.
type Emphasis int

const (
	Plain Emphasis = iota
	Hovered
	Highlighted
)

// Emissive returns the glow color a renderer adds for the emphasis.
func (e Emphasis) Emissive() string {
	switch e {
	case Hovered:
		return "#222244"
	case Highlighted:
		return "#333366"
	default:
		return "#000000"
	}
}

func (e Emphasis) String() string {
	switch e {
	case Hovered:
		return "hovered"
	case Highlighted:
		return "highlighted"
	default:
		return "plain"
	}
}

// Visual is a change to apply to one building.
type Visual struct {
	ID       string
	Emphasis Emphasis
}

// DiffVisuals returns the per-building changes implied by moving from prev
// to next while highlight (may be empty) is the persistently highlighted
// building. It is pure; renderers apply the result and keep no state.
// Hovering and selecting both render as Hovered.
func DiffVisuals(prev, next State, highlight string) []Visual {
	if prev.Target == next.Target {
		return nil
	}
	var out []Visual
	if prev.Target != "" {
		e := Plain
		if prev.Target == highlight {
			e = Highlighted
		}
		out = append(out, Visual{ID: prev.Target, Emphasis: e})
	}
	if next.Target != "" {
		out = append(out, Visual{ID: next.Target, Emphasis: Hovered})
	}
	return out
}

// DiffHighlight returns the changes for moving the persistent highlight
// (set from a list outside the scene) from prev to next building ID.
func DiffHighlight(prev, next string) []Visual {
	if prev == next {
		return nil
	}
	var out []Visual
	if prev != "" {
		out = append(out, Visual{ID: prev, Emphasis: Plain})
	}
	if next != "" {
		out = append(out, Visual{ID: next, Emphasis: Highlighted})
	}
	return out
}
