// Package render draws the trailing-window rate graph and keeps it redrawn
// once per display frame.
package render

import (
	"math"
	"strconv"
	"time"

	"github.com/Clark-Hu/rating-pulse/internal/sampler"
)

const (
	// GridIntervals is the number of horizontal bands; GridIntervals+1 lines are drawn.
	GridIntervals = 4
	// TimeLabels is the number of wall-clock labels along the X axis.
	TimeLabels = 5
)

// Frame is everything DrawFrame needs besides the surface.
type Frame struct {
	Series sampler.Series
	Style  Style
	// Location is used for the X axis clock labels; nil means time.Local.
	Location *time.Location
	// Caption is drawn right-aligned opposite the badge when non-empty.
	Caption string
}

// DrawFrame renders one frame. A detached or zero-sized surface is skipped
// silently so the next scheduled frame can retry.
func DrawFrame(surface Surface, f Frame) error {
	m, ok := surface.Metrics()
	if !ok || m.Width <= 0 || m.Height <= 0 {
		return nil
	}
	ctx := surface.Context()
	if ctx == nil {
		return nil
	}

	dpr := m.PixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	ctx.SetSize(int(math.Floor(m.Width*dpr)), int(math.Floor(m.Height*dpr)))
	ctx.Scale(dpr, dpr)
	ctx.ClearRect(0, 0, m.Width, m.Height)

	st := f.Style
	lay := st.Layout
	plot := plotArea{
		left:   lay.Left,
		top:    lay.Top,
		width:  m.Width - lay.Left - lay.Right,
		height: m.Height - lay.Top - lay.Bottom,
		start:  f.Series.Start,
		span:   f.Series.End - f.Series.Start,
		max:    f.Series.MaxCount(),
	}
	if plot.width <= 0 || plot.height <= 0 || plot.span <= 0 {
		return surface.Present()
	}

	drawGrid(ctx, st, plot)
	drawYLabels(ctx, st, plot)
	drawTimeLabels(ctx, st, plot, m.Height, f.Location)
	drawCurve(ctx, st, plot, f.Series.Points)
	drawBadge(ctx, st, plot, f.Series.Last())
	if f.Caption != "" {
		drawCaption(ctx, st, plot, f.Caption)
	}

	return surface.Present()
}

type plotArea struct {
	left, top, width, height float64
	start, span              int64
	max                      int
}

func (p plotArea) x(t int64) float64 {
	return p.left + float64(t-p.start)/float64(p.span)*p.width
}

func (p plotArea) y(count int) float64 {
	return p.top + p.height - float64(count)/float64(p.max)*p.height
}

func (p plotArea) gridY(i int) float64 {
	return p.top + float64(i)*(p.height/GridIntervals)
}

func drawGrid(ctx Context, st Style, p plotArea) {
	ctx.SetStrokeColor(st.GridColor)
	ctx.SetLineWidth(1)
	ctx.BeginPath()
	for i := 0; i <= GridIntervals; i++ {
		yy := p.gridY(i)
		ctx.MoveTo(p.left, yy)
		ctx.LineTo(p.left+p.width, yy)
	}
	ctx.Stroke()
}

func drawYLabels(ctx Context, st Style, p plotArea) {
	ctx.SetFillColor(st.TextColor)
	ctx.SetFont(st.FontMain)
	ctx.SetTextAlign(AlignRight)
	ctx.SetTextBaseline(BaselineMiddle)
	for i, label := range YLabels(p.max) {
		ctx.FillText(label, p.left-st.Layout.YLabelGap, p.gridY(i))
	}
}

// YLabels returns the Y axis labels top to bottom for a given maximum count.
func YLabels(maxCount int) []string {
	labels := make([]string, 0, GridIntervals+1)
	for i := 0; i <= GridIntervals; i++ {
		v := math.Round(float64(maxCount) - float64(i)*float64(maxCount)/GridIntervals)
		labels = append(labels, strconv.Itoa(int(v)))
	}
	return labels
}

func drawTimeLabels(ctx Context, st Style, p plotArea, surfaceHeight float64, loc *time.Location) {
	ctx.SetFillColor(st.TickColor)
	ctx.SetFont(st.FontMain)
	ctx.SetTextAlign(AlignCenter)
	ctx.SetTextBaseline(BaselineTop)
	y := surfaceHeight - st.Layout.Bottom + st.Layout.XLabelGap
	for i, label := range TimeLabelsFor(p.start, p.start+p.span, loc) {
		x := p.left + float64(i)*(p.width/(TimeLabels-1))
		ctx.FillText(label, x, y)
	}
}

// TimeLabelsFor returns TimeLabels HH:MM:SS labels evenly spaced across
// [start, end] (epoch ms), both ends included.
func TimeLabelsFor(start, end int64, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	labels := make([]string, 0, TimeLabels)
	span := float64(end - start)
	for i := 0; i < TimeLabels; i++ {
		tt := start + int64(float64(i)*span/(TimeLabels-1))
		labels = append(labels, time.UnixMilli(tt).In(loc).Format("15:04:05"))
	}
	return labels
}

func drawCurve(ctx Context, st Style, p plotArea, points []sampler.Point) {
	if len(points) == 0 {
		return
	}
	ctx.BeginPath()
	for i, pt := range points {
		x, y := p.x(pt.T), p.y(pt.Count)
		if i == 0 {
			ctx.MoveTo(x, y)
		} else {
			ctx.LineTo(x, y)
		}
	}
	ctx.SetLineWidth(st.LineWidth)
	ctx.SetStrokeColor(st.LineColor)
	ctx.Stroke()

	baseline := p.top + p.height
	ctx.LineTo(p.left+p.width, baseline)
	ctx.LineTo(p.left, baseline)
	ctx.ClosePath()
	ctx.SetFillColor(st.FillColor)
	ctx.Fill()
}

func drawBadge(ctx Context, st Style, p plotArea, total int) {
	ctx.SetTextAlign(AlignLeft)
	ctx.SetTextBaseline(BaselineMiddle)
	ctx.SetFillColor(st.BadgeColor)
	ctx.SetFont(st.FontBadge)
	ctx.FillText(BadgeText(total), p.left, p.top-st.Layout.BadgeLift)
}

// BadgeText is the label showing the most recent cumulative count.
func BadgeText(total int) string {
	return "Total: " + strconv.Itoa(total)
}

func drawCaption(ctx Context, st Style, p plotArea, text string) {
	ctx.SetTextAlign(AlignRight)
	ctx.SetTextBaseline(BaselineMiddle)
	ctx.SetFillColor(st.BadgeColor)
	ctx.SetFont(st.FontBadge)
	ctx.FillText(text, p.left+p.width, p.top-st.Layout.BadgeLift)
}
