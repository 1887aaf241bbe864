package views

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/krishotte/env-monitor/internal/x/mathx"
)

const (
	chartWidth   = 960.0
	chartHeight  = 360.0
	chartPadding = 40.0
)

// Sample is one plotted point.
type Sample struct {
	Time  time.Time
	Value float64
}

// Chart is the geometry of an SVG line chart.
type Chart struct {
	Width, Height float64
	Polyline      string
	Min, Max      float64
	From, To      time.Time
	Empty         bool
	YTicks        []Tick
}

type Tick struct {
	Y     float64
	Label string
}

// BuildChart scales samples into the chart's drawing area.
func BuildChart(samples []Sample) Chart {
	c := Chart{Width: chartWidth, Height: chartHeight}
	if len(samples) == 0 {
		c.Empty = true
		return c
	}

	c.Min, c.Max = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		c.Min = math.Min(c.Min, s.Value)
		c.Max = math.Max(c.Max, s.Value)
	}
	c.From, c.To = samples[0].Time, samples[len(samples)-1].Time

	t0 := float64(c.From.UnixMilli())
	t1 := float64(c.To.UnixMilli())
	left, right := chartPadding, chartWidth-chartPadding/2
	top, bottom := chartPadding/2, chartHeight-chartPadding

	var b strings.Builder
	for i, s := range samples {
		x := mathx.Remap(float64(s.Time.UnixMilli()), t0, t1, left, right)
		y := mathx.Remap(s.Value, c.Min, c.Max, bottom, top)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	c.Polyline = b.String()

	const ticks = 4
	for i := 0; i <= ticks; i++ {
		v := c.Min + (c.Max-c.Min)*float64(i)/ticks
		c.YTicks = append(c.YTicks, Tick{
			Y:     mathx.Remap(v, c.Min, c.Max, bottom, top),
			Label: fmt.Sprintf("%.1f", v),
		})
	}
	return c
}
