package scope

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/itohio/gosmu/pkg/monitor"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	voltageColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	currentColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
)

const (
	marginLeft   = float32(70)
	marginRight  = float32(70)
	marginTop    = float32(20)
	marginBottom = float32(40)
)

// plotArea is the rectangle inside the margins.
type plotArea struct {
	x, y          float32
	width, height float32
}

func newPlotArea(size fyne.Size) plotArea {
	return plotArea{
		x:      marginLeft,
		y:      marginTop,
		width:  math32.Max(size.Width-marginLeft-marginRight, 1),
		height: math32.Max(size.Height-marginTop-marginBottom, 1),
	}
}

// valueY maps v on a to a vertical position, clamped to the plot area.
func (p plotArea) valueY(v float64, a axis) float32 {
	frac := float32((v - a.min) / (a.max - a.min))
	if math32.IsNaN(frac) || math32.IsInf(frac, 0) {
		frac = 0
	}
	frac = math32.Min(math32.Max(frac, 0), 1)
	return p.y + p.height - frac*p.height
}

// timeX maps t to a horizontal position.
func (p plotArea) timeX(t, xMin, xMax time.Time) float32 {
	span := xMax.Sub(xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(xMin).Seconds()/span)*p.width
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds all canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.display
	voltage := r.scope.voltage
	current := r.scope.current
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}
	p := newPlotArea(size)

	r.drawGrid(p, voltage, current, xMin, xMax)

	if len(samples) > 1 {
		r.drawTrace(p, samples, voltage, xMin, xMax, voltageColor, func(s monitor.Sample) float64 { return s.Voltage })
		r.drawTrace(p, samples, current, xMin, xMax, currentColor, func(s monitor.Sample) float64 { return s.Current })
	}

	if len(samples) > 0 {
		r.drawReadout(p, samples[len(samples)-1])
	}
}

// drawGrid draws the grid with voltage labels on the left and current labels on the right.
func (r *scopeRenderer) drawGrid(p plotArea, voltage, current axis, xMin, xMax time.Time) {
	numHLines := 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.height/float32(numHLines)
		r.addLine(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y))

		frac := float64(i) / float64(numHLines)
		vText := r.addText(formatSI(voltage.max-frac*(voltage.max-voltage.min), "V"), voltageColor, 10, fyne.TextAlignTrailing)
		vText.Move(fyne.NewPos(p.x-5, y-6))

		iText := r.addText(formatSI(current.max-frac*(current.max-current.min), "A"), currentColor, 10, fyne.TextAlignLeading)
		iText.Move(fyne.NewPos(p.x+p.width+5, y-6))
	}

	numVLines := 10
	span := xMax.Sub(xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.width/float32(numVLines)
		r.addLine(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height))

		offset := time.Duration(float64(span) * float64(i) / float64(numVLines))
		text := r.addText(formatTime(offset), labelColor, 10, fyne.TextAlignCenter)
		text.Move(fyne.NewPos(x-20, p.y+p.height+5))
	}
}

// drawTrace draws value of samples as connected line segments.
func (r *scopeRenderer) drawTrace(p plotArea, samples []monitor.Sample, a axis, xMin, xMax time.Time, c color.Color, value func(monitor.Sample) float64) {
	prev := fyne.NewPos(p.timeX(samples[0].Timestamp, xMin, xMax), p.valueY(value(samples[0]), a))
	for _, s := range samples[1:] {
		pos := fyne.NewPos(p.timeX(s.Timestamp, xMin, xMax), p.valueY(value(s), a))
		r.addLine(c, 1.5, prev, pos)
		prev = pos
	}
}

// drawReadout prints the newest reading in the top left corner.
func (r *scopeRenderer) drawReadout(p plotArea, s monitor.Sample) {
	text := r.addText("CH"+s.Channel+"  "+formatSI(s.Voltage, "V")+"  "+formatSI(s.Current, "A")+"  "+formatSI(s.Power, "W"),
		color.RGBA{R: 200, G: 200, B: 200, A: 255}, 11, fyne.TextAlignLeading)
	text.Move(fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) addLine(c color.Color, width float32, from, to fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) addText(s string, c color.Color, size float32, align fyne.TextAlign) *canvas.Text {
	text := canvas.NewText(s, c)
	text.TextSize = size
	text.Alignment = align
	r.objects = append(r.objects, text)
	return text
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

var siPrefixes = []struct {
	scale  float64
	prefix string
}{
	{1e-9, "n"},
	{1e-6, "µ"},
	{1e-3, "m"},
	{1, ""},
	{1e3, "k"},
}

// formatSI formats v with an engineering prefix and three significant digits.
func formatSI(v float64, unit string) string {
	mag := math.Abs(v)
	if mag < 1e-12 {
		return "0" + unit
	}

	p := siPrefixes[0]
	for _, candidate := range siPrefixes {
		if mag >= candidate.scale {
			p = candidate
		}
	}
	return strconv.FormatFloat(v/p.scale, 'g', 3, 64) + p.prefix + unit
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}
