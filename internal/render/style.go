package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Font describes a text face. Surfaces that cannot select faces may ignore it.
type Font struct {
	Size   float64
	Family string
}

func (f Font) String() string {
	return fmt.Sprintf("%gpx %s", f.Size, f.Family)
}

// Layout reserves room around the plot area, in CSS pixels.
type Layout struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64

	// YLabelGap separates Y labels from the plot's left edge.
	YLabelGap float64
	// XLabelGap separates X labels from the plot's bottom edge.
	XLabelGap float64
	// BadgeLift raises the badge above the plot's top edge.
	BadgeLift float64
}

// Style is every presentation parameter a frame needs. It is passed in
// explicitly rather than read from ambient state.
type Style struct {
	LineColor  color.RGBA
	LineWidth  float64
	FillColor  color.RGBA
	GridColor  color.RGBA
	TextColor  color.RGBA
	TickColor  color.RGBA
	BadgeColor color.RGBA
	FontMain   Font
	FontBadge  Font
	Layout     Layout
}

// DefaultStyle is a violet curve on a dark background.
func DefaultStyle() Style {
	return Style{
		LineColor:  color.RGBA{R: 0xC0, G: 0x84, B: 0xFC, A: 0xFF},
		LineWidth:  2,
		FillColor:  color.RGBA{R: 192, G: 132, B: 252, A: 31},
		GridColor:  color.RGBA{R: 255, G: 255, B: 255, A: 20},
		TextColor:  color.RGBA{R: 255, G: 255, B: 255, A: 153},
		TickColor:  color.RGBA{R: 255, G: 255, B: 255, A: 115},
		BadgeColor: color.RGBA{R: 255, G: 255, B: 255, A: 242},
		FontMain:   Font{Size: 12, Family: "Inter, sans-serif"},
		FontBadge:  Font{Size: 13, Family: "Inter, sans-serif"},
		Layout: Layout{
			Left: 40, Right: 10, Top: 10, Bottom: 20,
			YLabelGap: 8, XLabelGap: 4, BadgeLift: 2,
		},
	}
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b) and rgba(r,g,b,a)
// with a in [0,1]. The result is not premultiplied.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgba("):len(s)-1], 4)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[len("rgb("):len(s)-1], 3)
	}
	return color.RGBA{}, fmt.Errorf("render: unsupported color %q", s)
}

func parseHex(h string) (color.RGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("render: bad hex color #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("render: bad hex color #%s: %w", h, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(args string, n int) (color.RGBA, error) {
	parts := strings.Split(args, ",")
	if len(parts) != n {
		return color.RGBA{}, fmt.Errorf("render: want %d color components, got %d", n, len(parts))
	}
	var c [4]uint8
	c[3] = 0xFF
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == 3 {
			a, err := strconv.ParseFloat(part, 64)
			if err != nil || a < 0 || a > 1 {
				return color.RGBA{}, fmt.Errorf("render: bad alpha %q", part)
			}
			c[3] = uint8(a*255 + 0.5)
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("render: bad color component %q", part)
		}
		c[i] = uint8(v)
	}
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}
