package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTimeSeriesSVG(t *testing.T) {
	times := []float64{0, 1, 2}
	series := []Series{
		{Label: "<mx>", Values: []float64{1, 0, -1}},
		{Label: "<mz>", Color: "#ffffff", Values: []float64{0, 0.5, 1}},
	}

	var buf bytes.Buffer
	if err := TimeSeriesSVG(&buf, times, series, 200, 100, -1, 1); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Count(out, "<path") != 2 {
		t.Errorf("expected 2 paths:\n%s", out)
	}
	if !strings.Contains(out, `d="M0.0,0.0 L100.0,50.0 L200.0,100.0"`) {
		t.Errorf("unexpected mx path:\n%s", out)
	}
	if !strings.Contains(out, DefaultColors[0]) || !strings.Contains(out, "#ffffff") {
		t.Error("colors not applied")
	}
	if !strings.Contains(out, "&lt;mx&gt;") {
		t.Error("label missing or not escaped")
	}
}

func TestTimeSeriesSVG_WellFormed(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{{Label: "<mx> & co", Values: []float64{0.1, 0.2, 0.3}}}
	if err := TimeSeriesSVG(&buf, []float64{0, 1, 2}, series, 100, 50, -1, 1); err != nil {
		t.Fatal(err)
	}
	dec := xml.NewDecoder(&buf)
	for {
		_, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid xml: %v", err)
			}
			break
		}
	}
}

func TestTimeSeriesSVG_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := TimeSeriesSVG(&buf, []float64{0}, nil, 10, 10, -1, 1); err == nil {
		t.Error("expected error for a single sample")
	}
	if err := TimeSeriesSVG(&buf, []float64{0, 1}, nil, 10, 10, 1, 1); err == nil {
		t.Error("expected error for empty range")
	}
}
