package render

import "image/color"

// TextAlign positions text horizontally relative to its anchor.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextBaseline positions text vertically relative to its anchor.
type TextBaseline int

const (
	BaselineMiddle TextBaseline = iota
	BaselineTop
)

// Context is a path-based 2D drawing API in the style of an HTML canvas.
// Coordinates are transformed by the current scale.
type Context interface {
	// SetSize resizes the backing store to width x height device pixels,
	// clearing it and resetting the transform.
	SetSize(width, height int)
	Scale(sx, sy float64)
	ClearRect(x, y, w, h float64)

	SetStrokeColor(c color.RGBA)
	SetFillColor(c color.RGBA)
	SetLineWidth(w float64)
	SetFont(f Font)
	SetTextAlign(a TextAlign)
	SetTextBaseline(b TextBaseline)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	Stroke()
	Fill()

	FillText(text string, x, y float64)
}

// Metrics is a surface's layout size in CSS pixels and its device pixel ratio.
type Metrics struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

// Surface is something a frame can be drawn onto.
type Surface interface {
	// Metrics reports ok=false while the surface is not attached; frames
	// are skipped until it is.
	Metrics() (m Metrics, ok bool)
	Context() Context
	// Present publishes the finished frame.
	Present() error
}
