package analysis

// Zone labels for the fixed 3x3 grid over an image's percentage coordinate
// space.
const (
	ZoneTopLeft      = "top-left"
	ZoneTopCenter    = "top-center"
	ZoneTopRight     = "top-right"
	ZoneMiddleLeft   = "middle-left"
	ZoneMiddleCenter = "middle-center"
	ZoneMiddleRight  = "middle-right"
	ZoneBottomLeft   = "bottom-left"
	ZoneBottomCenter = "bottom-center"
	ZoneBottomRight  = "bottom-right"

	// ZoneOverall buckets feedback that carries no coordinates.
	ZoneOverall = "overall"
)

// Zone maps percentage coordinates to one of the nine grid cells. Total over
// all inputs: values outside [0,100] are clamped, never rejected, so the
// mapping has no gaps.
func Zone(x, y float64) string {
	return rowBucket(y) + "-" + colBucket(x)
}

func rowBucket(y float64) string {
	switch third(y) {
	case 0:
		return "top"
	case 1:
		return "middle"
	default:
		return "bottom"
	}
}

func colBucket(x float64) string {
	switch third(x) {
	case 0:
		return "left"
	case 1:
		return "center"
	default:
		return "right"
	}
}

func third(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	switch {
	case v < 100.0/3.0:
		return 0
	case v < 200.0/3.0:
		return 1
	default:
		return 2
	}
}
