package mathx

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi int
		want      int
	}{
		{name: "inside", v: 100, lo: 0, hi: 1023, want: 100},
		{name: "below", v: -5, lo: 0, hi: 1023, want: 0},
		{name: "above", v: 2000, lo: 0, hi: 1023, want: 1023},
		{name: "swapped bounds", v: 2000, lo: 1023, hi: 0, want: 1023},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%d, %d, %d) = %d; want %d", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestScale(t *testing.T) {
	const dutyMax = 1 << 24
	tests := []struct {
		x, want int64
	}{
		{x: 0, want: 0},
		{x: 1023, want: dutyMax},
		{x: 2048, want: dutyMax},
		{x: -1, want: 0},
		{x: 100, want: 100 * dutyMax / 1023},
	}
	for _, tt := range tests {
		if got := Scale(tt.x, 1023, dutyMax); got != tt.want {
			t.Errorf("Scale(%d) = %d; want %d", tt.x, got, tt.want)
		}
	}
	if got := Scale(5, 0, 10); got != 0 {
		t.Errorf("Scale with zero range = %d; want 0", got)
	}
}

func TestRemap(t *testing.T) {
	if got := Remap(50.0, 0, 100, 200, 0); got != 100 {
		t.Errorf("Remap inverted axis = %v; want 100", got)
	}
	if got := Remap(7.0, 7, 7, 0, 10); got != 5 {
		t.Errorf("Remap degenerate = %v; want 5", got)
	}
}
