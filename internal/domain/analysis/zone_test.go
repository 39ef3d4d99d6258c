package analysis

import "testing"

func TestZoneBoundaries(t *testing.T) {
	cases := []struct {
		x, y float64
		want string
	}{
		{0, 0, ZoneTopLeft},
		{50, 0, ZoneTopCenter},
		{100, 0, ZoneTopRight},
		{0, 50, ZoneMiddleLeft},
		{50, 50, ZoneMiddleCenter},
		{100, 50, ZoneMiddleRight},
		{0, 100, ZoneBottomLeft},
		{50, 100, ZoneBottomCenter},
		{100, 100, ZoneBottomRight},
		// Boundary values fall into exactly one cell.
		{33.33, 33.33, ZoneTopLeft},
		{33.34, 33.34, ZoneMiddleCenter},
		{66.66, 66.66, ZoneMiddleCenter},
		{66.67, 66.67, ZoneBottomRight},
		// Out-of-range values clamp instead of erroring.
		{-10, -10, ZoneTopLeft},
		{150, 150, ZoneBottomRight},
	}
	for _, tc := range cases {
		if got := Zone(tc.x, tc.y); got != tc.want {
			t.Fatalf("Zone(%v, %v) = %q, want %q", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestZoneDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		x := float64(i)
		y := float64(100 - i)
		if Zone(x, y) != Zone(x, y) {
			t.Fatalf("Zone(%v, %v) not deterministic", x, y)
		}
	}
}

func TestResolveZone(t *testing.T) {
	x, y := 10.0, 90.0
	located := Annotation{X: &x, Y: &y}
	if got := located.ResolveZone(); got != ZoneBottomLeft {
		t.Fatalf("ResolveZone located = %q, want %q", got, ZoneBottomLeft)
	}
	if got := (Annotation{}).ResolveZone(); got != ZoneOverall {
		t.Fatalf("ResolveZone unlocated = %q, want %q", got, ZoneOverall)
	}
}
