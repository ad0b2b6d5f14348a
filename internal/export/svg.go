package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Series is one curve of a time plot.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// DefaultColors are used for <mx>, <my> and <mz>.
var DefaultColors = []string{"#ff5555", "#55ff55", "#5599ff"}

// TimeSeriesSVG plots every series against times on a shared fixed
// y-range [lo, hi]. Series shorter than times are drawn up to their length.
func TimeSeriesSVG(w io.Writer, times []float64, series []Series, width, height int, lo, hi float64) error {
	if len(times) < 2 {
		return fmt.Errorf("need at least two samples, got %d", len(times))
	}
	if hi <= lo {
		return fmt.Errorf("invalid y-range [%g, %g]", lo, hi)
	}

	t0, t1 := times[0], times[len(times)-1]
	spanT := t1 - t0
	if spanT == 0 {
		spanT = 1
	}
	px := func(t float64) float64 { return (t - t0) / spanT * float64(width) }
	py := func(v float64) float64 { return float64(height) - (v-lo)/(hi-lo)*float64(height) }

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if lo < 0 && hi > 0 {
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-dasharray="4 4"/>
`, py(0), width, py(0))
	}

	for i, s := range series {
		n := min(len(s.Values), len(times))
		if n < 2 {
			continue
		}
		color := s.Color
		if color == "" {
			color = DefaultColors[i%len(DefaultColors)]
		}

		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for j := 0; j < n; j++ {
			if j > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", px(times[j]), py(s.Values[j]))
		}
		sb.WriteString("\"/>\n")

		if s.Label != "" {
			fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">`, 16*(i+1), color)
			if err := xml.EscapeText(&sb, []byte(s.Label)); err != nil {
				return err
			}
			sb.WriteString("</text>\n")
		}
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
