// Package term draws render frames onto a text terminal using braille
// characters, giving each character cell a 2x4 grid of dots.
package term

import (
	"bufio"
	"errors"
	"image/color"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	fcolor "github.com/fatih/color"

	"github.com/Clark-Hu/rating-pulse/internal/render"
)

const (
	dotsX = 2
	dotsY = 4

	brailleBase = 0x2800

	// A cell is one CSS unit wide and two tall, so the pixel ratio maps
	// each CSS unit onto a 2x2 block of dots.
	pixelRatio = 2
	cssPerRow  = 2

	cursorHome = "\x1b[H"
	eraseLine  = "\x1b[K"
)

// brailleBits maps a dot's position within a cell to its braille bit.
var brailleBits = [dotsY][dotsX]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// SizeFunc reports the terminal size in columns and rows.
type SizeFunc func() (cols, rows int, err error)

type dotKind uint8

const (
	dotNone dotKind = iota
	dotFill
	dotStroke
)

type point struct{ x, y float64 }

type glyph struct {
	r   rune
	rgb color.RGBA
}

// Canvas is a render.Surface and render.Context backed by a braille grid.
type Canvas struct {
	out   io.Writer
	size  SizeFunc
	color bool

	cols, rows int
	w, h       int // in dots
	dots       []dotKind
	dotColor   []color.RGBA
	text       map[int]glyph

	sx, sy   float64
	stroke   color.RGBA
	fill     color.RGBA
	align    render.TextAlign
	baseline render.TextBaseline

	paths [][]point
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithColor forces 24-bit color output on or off. By default fatih/color
// decides from the process's terminal.
func WithColor(on bool) Option {
	return func(c *Canvas) { c.color = on }
}

// New returns a canvas that writes frames to out and sizes itself with size.
func New(out io.Writer, size SizeFunc, opts ...Option) *Canvas {
	c := &Canvas{
		out:   out,
		size:  size,
		color: !fcolor.NoColor,
		sx:    1,
		sy:    1,
		text:  make(map[int]glyph),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics implements render.Surface. The surface counts as detached while
// the terminal size is unknown or empty.
func (c *Canvas) Metrics() (render.Metrics, bool) {
	if c.size == nil {
		return render.Metrics{}, false
	}
	cols, rows, err := c.size()
	if err != nil || cols <= 0 || rows <= 0 {
		return render.Metrics{}, false
	}
	return render.Metrics{
		Width:      float64(cols),
		Height:     float64(rows * cssPerRow),
		PixelRatio: pixelRatio,
	}, true
}

// Context implements render.Surface.
func (c *Canvas) Context() render.Context { return c }

// SetSize resizes the dot grid; both dimensions are rounded down to whole cells.
func (c *Canvas) SetSize(width, height int) {
	c.cols, c.rows = max(width/dotsX, 0), max(height/dotsY, 0)
	c.w, c.h = c.cols*dotsX, c.rows*dotsY
	c.dots = make([]dotKind, c.w*c.h)
	c.dotColor = make([]color.RGBA, c.w*c.h)
	clear(c.text)
	c.sx, c.sy = 1, 1
	c.paths = nil
}

func (c *Canvas) Scale(sx, sy float64) {
	c.sx *= sx
	c.sy *= sy
}

func (c *Canvas) ClearRect(x, y, w, h float64) {
	x0, y0 := c.device(x, y)
	x1, y1 := c.device(x+w, y+h)
	left, right := clampInt(int(x0), 0, c.w), clampInt(int(math.Ceil(x1)), 0, c.w)
	top, bottom := clampInt(int(y0), 0, c.h), clampInt(int(math.Ceil(y1)), 0, c.h)
	for dy := top; dy < bottom; dy++ {
		for dx := left; dx < right; dx++ {
			c.dots[dy*c.w+dx] = dotNone
		}
	}
	for idx := range c.text {
		col, row := idx%c.cols, idx/c.cols
		if col*dotsX >= left && col*dotsX < right && row*dotsY >= top && row*dotsY < bottom {
			delete(c.text, idx)
		}
	}
}

func (c *Canvas) SetStrokeColor(col color.RGBA) { c.stroke = col }

func (c *Canvas) SetFillColor(col color.RGBA) { c.fill = col }

// SetLineWidth is ignored; strokes are always one dot wide.
func (c *Canvas) SetLineWidth(float64) {}

// SetFont is ignored; the terminal has one font.
func (c *Canvas) SetFont(render.Font) {}

func (c *Canvas) SetTextAlign(a render.TextAlign) { c.align = a }

func (c *Canvas) SetTextBaseline(b render.TextBaseline) { c.baseline = b }

func (c *Canvas) BeginPath() { c.paths = nil }

func (c *Canvas) MoveTo(x, y float64) {
	dx, dy := c.device(x, y)
	c.paths = append(c.paths, []point{{dx, dy}})
}

func (c *Canvas) LineTo(x, y float64) {
	if len(c.paths) == 0 {
		c.MoveTo(x, y)
		return
	}
	dx, dy := c.device(x, y)
	last := len(c.paths) - 1
	c.paths[last] = append(c.paths[last], point{dx, dy})
}

func (c *Canvas) ClosePath() {
	if len(c.paths) == 0 {
		return
	}
	last := len(c.paths) - 1
	if sub := c.paths[last]; len(sub) > 1 {
		c.paths[last] = append(sub, sub[0])
	}
}

// Stroke draws every segment of the current path one dot wide.
func (c *Canvas) Stroke() {
	for _, sub := range c.paths {
		if len(sub) == 1 {
			c.line(sub[0], sub[0])
		}
		for i := 1; i < len(sub); i++ {
			c.line(sub[i-1], sub[i])
		}
	}
}

// Fill fills the current path with the even-odd rule, sampling each dot at
// its centre. Stroked dots keep their color so the curve stays on top.
func (c *Canvas) Fill() {
	var edges [][2]point
	for _, sub := range c.paths {
		for i := 1; i < len(sub); i++ {
			edges = append(edges, [2]point{sub[i-1], sub[i]})
		}
		if n := len(sub); n > 2 && sub[0] != sub[n-1] {
			edges = append(edges, [2]point{sub[n-1], sub[0]})
		}
	}
	if len(edges) == 0 {
		return
	}

	var xs []float64
	for y := 0; y < c.h; y++ {
		cy := float64(y) + 0.5
		xs = xs[:0]
		for _, e := range edges {
			a, b := e[0], e[1]
			if (a.y <= cy) == (b.y <= cy) {
				continue
			}
			xs = append(xs, a.x+(cy-a.y)*(b.x-a.x)/(b.y-a.y))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			from := int(math.Ceil(xs[i] - 0.5))
			to := int(math.Floor(xs[i+1] - 0.5))
			for x := from; x <= to; x++ {
				c.plot(x, y, dotFill, c.fill)
			}
		}
	}
}

// FillText places text on whole cells in the fill color. Text hides any
// dots in the cells it covers.
func (c *Canvas) FillText(s string, x, y float64) {
	if c.cols == 0 || c.rows == 0 {
		return
	}
	dx, dy := c.device(x, y)
	col := int(math.Floor(dx / dotsX))
	row := int(math.Floor(dy / dotsY))
	if row < 0 || row >= c.rows {
		return
	}

	n := utf8.RuneCountInString(s)
	switch c.align {
	case render.AlignRight:
		col -= n
	case render.AlignCenter:
		col -= n / 2
	}
	// Keep labels on screen rather than clipping them at the edges.
	col = clampInt(col, 0, max(c.cols-n, 0))
	for _, r := range s {
		if col < c.cols {
			c.text[row*c.cols+col] = glyph{r: r, rgb: c.fill}
		}
		col++
	}
}

// Present writes the frame to the output, homing the cursor first so each
// frame overwrites the last.
func (c *Canvas) Present() error {
	if c.out == nil {
		return errors.New("term: no output")
	}
	bw := bufio.NewWriter(c.out)
	bw.WriteString(cursorHome)
	for row := 0; row < c.rows; row++ {
		c.writeRow(bw, row)
		bw.WriteString(eraseLine)
		if row < c.rows-1 {
			bw.WriteString("\r\n")
		}
	}
	return bw.Flush()
}

// String returns the frame as plain text, one line per row.
func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			r, _, _ := c.cell(col, row)
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *Canvas) writeRow(w *bufio.Writer, row int) {
	var (
		run    strings.Builder
		runRGB color.RGBA
		runOn  bool
	)
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runOn && c.color {
			p := fcolor.RGB(blend(runRGB))
			p.EnableColor()
			w.WriteString(p.Sprint(run.String()))
		} else {
			w.WriteString(run.String())
		}
		run.Reset()
	}
	for col := 0; col < c.cols; col++ {
		r, rgb, on := c.cell(col, row)
		if on != runOn || rgb != runRGB {
			flush()
			runRGB, runOn = rgb, on
		}
		run.WriteRune(r)
	}
	flush()
}

// cell resolves one character cell. Text wins; otherwise the braille
// pattern takes the color of its stroke dots if it has any.
func (c *Canvas) cell(col, row int) (rune, color.RGBA, bool) {
	if g, ok := c.text[row*c.cols+col]; ok {
		return g.r, g.rgb, true
	}
	var (
		bits rune
		rgb  color.RGBA
		top  dotKind
	)
	for dy := 0; dy < dotsY; dy++ {
		for dx := 0; dx < dotsX; dx++ {
			idx := (row*dotsY+dy)*c.w + col*dotsX + dx
			k := c.dots[idx]
			if k == dotNone {
				continue
			}
			bits |= brailleBits[dy][dx]
			if k > top {
				top, rgb = k, c.dotColor[idx]
			}
		}
	}
	if top == dotNone {
		return ' ', color.RGBA{}, false
	}
	return brailleBase + bits, rgb, true
}

func (c *Canvas) device(x, y float64) (float64, float64) {
	return x * c.sx, y * c.sy
}

func (c *Canvas) plot(x, y int, k dotKind, col color.RGBA) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	idx := y*c.w + x
	if c.dots[idx] > k {
		return
	}
	c.dots[idx] = k
	c.dotColor[idx] = col
}

// line rasterises a segment with Bresenham's algorithm.
func (c *Canvas) line(a, b point) {
	x0, y0 := c.dot(a)
	x1, y1 := c.dot(b)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	stepX, stepY := 1, 1
	if x0 > x1 {
		stepX = -1
	}
	if y0 > y1 {
		stepY = -1
	}
	e := dx + dy
	for {
		c.plot(x0, y0, dotStroke, c.stroke)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += stepX
		}
		if e2 <= dx {
			e += dx
			y0 += stepY
		}
	}
}

// dot returns the dot containing p. A point on the far edge of the grid
// belongs to the last dot.
func (c *Canvas) dot(p point) (int, int) {
	x := clampInt(int(math.Floor(p.x)), -1, c.w-1)
	y := clampInt(int(math.Floor(p.y)), -1, c.h-1)
	return x, y
}

// blend composites a non-premultiplied color over a black background.
func blend(c color.RGBA) (r, g, b int) {
	a := int(c.A)
	return int(c.R) * a / 255, int(c.G) * a / 255, int(c.B) * a / 255
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
