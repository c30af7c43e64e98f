package preview

import "math"

// Rect is an element's bounding box in viewport coordinates
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Viewport describes the visible area and how far the document is scrolled
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Point is a position in document coordinates
type Point struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Size is a rendered surface's measured extent
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Margins control spacing around the popover.
// Gap separates it from the trigger, Padding keeps it off the viewport edge.
type Margins struct {
	Gap     float64
	Padding float64
}

// DefaultMargins returns an 8px gap and 10px edge padding
func DefaultMargins() Margins {
	return Margins{Gap: 8, Padding: 10}
}

// Position places a width x height popover next to trigger. It prefers
// below and left-aligned, flips horizontally or vertically when that would
// overflow the viewport, and never goes past the top or left padding.
func Position(trigger Rect, width, height float64, vp Viewport, m Margins) Point {
	left := trigger.Left + vp.ScrollX
	top := trigger.Bottom + vp.ScrollY + m.Gap

	if left+width > vp.ScrollX+vp.Width-m.Padding {
		left = trigger.Right + vp.ScrollX - width
	}
	left = math.Max(left, vp.ScrollX+m.Padding)

	if top+height > vp.ScrollY+vp.Height-m.Padding {
		top = trigger.Top + vp.ScrollY - height - m.Gap
	}
	top = math.Max(top, vp.ScrollY+m.Padding)

	return Point{Top: top, Left: left}
}
