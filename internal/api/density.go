package api

import (
	"fmt"
	"image/color"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// showRunDensity renders a PNG heatmap of streamline point density
// projected onto the XY plane of the run's atlas grid.
func (s *Server) showRunDensity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %v", err))
		return
	}

	atlas, err := s.db.GetVolumeRecord(run.AtlasID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load atlas record: %v", err))
		return
	}

	records, err := s.db.StreamlinesForRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load streamlines: %v", err))
		return
	}
	if len(records) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "Run has no streamlines")
		return
	}

	grid := densityGrid{
		nx:   atlas.DimX,
		ny:   atlas.DimY,
		resX: atlas.ResX,
		resY: atlas.ResY,
	}
	grid.counts = make([]float64, grid.nx*grid.ny)
	for _, rec := range records {
		for _, p := range rec.Line {
			cx := clampBin(int(p.X/grid.resX), grid.nx)
			cy := clampBin(int(p.Y/grid.resY), grid.ny)
			grid.counts[cx*grid.ny+cy]++
		}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Streamline Density (run %s)", run.RunID)
	pl.X.Label.Text = "X (mm)"
	pl.Y.Label.Text = "Y (mm)"
	pl.Add(plotter.NewHeatMap(grid, densityPalette(64)))

	wt, err := pl.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to render density plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// Headers are already out; the write failure can only be logged by
		// the middleware.
		return
	}
}

func clampBin(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// densityGrid implements plotter.GridXYZ over an XY-projected point count.
type densityGrid struct {
	counts     []float64
	nx, ny     int
	resX, resY float64
}

func (g densityGrid) Dims() (c, r int)   { return g.nx, g.ny }
func (g densityGrid) Z(c, r int) float64 { return g.counts[c*g.ny+r] }
func (g densityGrid) X(c int) float64    { return (float64(c) + 0.5) * g.resX }
func (g densityGrid) Y(r int) float64    { return (float64(r) + 0.5) * g.resY }

// heatColors implements palette.Palette with an HSL ramp from deep blue
// through red.
type heatColors []color.Color

func (p heatColors) Colors() []color.Color { return p }

func densityPalette(n int) heatColors {
	colors := make(heatColors, n)
	for i := 0; i < n; i++ {
		// Hue runs backwards from blue (2/3) to red (0).
		hue := (2.0 / 3.0) * (1 - float64(i)/float64(n-1))
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
