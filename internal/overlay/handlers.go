package overlay

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/motion.capture/internal/sink"
)

// AttachAdminRoutes registers the overlay charts under /debug/. Both take
// an optional ?columns=a,b,c query; the default is every sensor's
// accelerometer X axis.
func (w *Window) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("overlay", "live overlay of recent rows", w.handleOverlayHTML)
	debug.HandleSilentFunc("overlay.png", w.handleOverlayPNG)
}

func (w *Window) selectSeries(r *http.Request) ([]Series, error) {
	cols := parseColumns(r.URL.Query().Get("columns"))
	if len(cols) == 0 {
		cols = w.DefaultColumns()
	}
	return w.Series(cols...)
}

func (w *Window) handleOverlayHTML(rw http.ResponseWriter, r *http.Request) {
	series, err := w.selectSeries(r)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	var x []string
	if len(series) > 0 {
		x = make([]string, len(series[0].X))
		for i, ts := range series[0].X {
			x[i] = sink.FormatValue(ts)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Capture Overlay", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Capture Overlay", Subtitle: fmt.Sprintf("rows=%d window=%d", w.Total(), len(x))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ms", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(x)
	for _, s := range series {
		data := make([]opts.LineData, len(s.Y))
		for i, v := range s.Y {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Column, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(rw, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write(buf.Bytes())
}

func (w *Window) handleOverlayPNG(rw http.ResponseWriter, r *http.Request) {
	series, err := w.selectSeries(r)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	width := 12 * vg.Inch
	if v, err := strconv.ParseFloat(r.URL.Query().Get("width"), 64); err == nil && v > 0 && v <= 40 {
		width = vg.Length(v) * vg.Inch
	}

	p, err := Plot(series)
	if err != nil {
		http.Error(rw, fmt.Sprintf("failed to build plot: %v", err), http.StatusInternalServerError)
		return
	}
	wt, err := p.WriterTo(width, width/2, "png")
	if err != nil {
		http.Error(rw, fmt.Sprintf("failed to render plot: %v", err), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		http.Error(rw, fmt.Sprintf("failed to encode plot: %v", err), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "image/png")
	_, _ = rw.Write(buf.Bytes())
}

// Plot draws series as lines against the timestamp column.
func Plot(series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Capture Overlay"
	p.X.Label.Text = "Timestamp (ms)"
	p.Y.Label.Text = "Value"

	colors := palette(len(series))
	for i, s := range series {
		if len(s.X) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.X))
		for j := range s.X {
			pts[j] = plotter.XY{X: s.X[j], Y: s.Y[j]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = colors[i]
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(s.Column, l)
	}
	return p, nil
}

// palette spreads n colours around the hue circle.
func palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		r, g, b := hueToRGB(float64(i) / float64(max(n, 1)))
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// hueToRGB converts a hue in [0,1) at fixed saturation and lightness.
func hueToRGB(h float64) (r, g, b uint8) {
	const s, l = 0.7, 0.5
	q := l + s - l*s
	p := 2*l - q
	conv := func(t float64) uint8 {
		switch {
		case t < 0:
			t++
		case t > 1:
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(v * 255)
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}
