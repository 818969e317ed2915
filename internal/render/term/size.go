package term

import (
	"golang.org/x/term"

	"github.com/Clark-Hu/rating-pulse/internal/render"
)

// FDSize sizes the canvas from the terminal attached to fd.
func FDSize(fd int) SizeFunc {
	return func() (int, int, error) {
		return term.GetSize(fd)
	}
}

// FixedSize always reports cols x rows.
func FixedSize(cols, rows int) SizeFunc {
	return func() (int, int, error) {
		return cols, rows, nil
	}
}

// IsTerminal reports whether fd is a terminal.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// Style adapts the default style to character cells: margins shrink to a
// few columns, the badge gets the top row and the clock labels the bottom one.
func Style() render.Style {
	st := render.DefaultStyle()
	st.Layout = render.Layout{
		Left:      6,
		Right:     1,
		Top:       2,
		Bottom:    3,
		YLabelGap: 1,
		XLabelGap: 1,
		BadgeLift: 2,
	}
	return st
}
