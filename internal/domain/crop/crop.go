// Package crop computes the centered 9:16 window used to turn a landscape
// (or any other aspect) frame into a vertical short.
package crop

import "math"

// Target portrait aspect ratio, width over height.
const (
	TargetW = 9.0
	TargetH = 16.0
)

// Rect is a pixel window inside a source frame, suitable for an encoder
// crop filter. W and H are always even so the H.264 encoder accepts them.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Window returns the centered 9:16 crop of a w×h frame. The dimension
// already within the target ratio is kept whole and only the other one is
// trimmed; the output is never padded.
func Window(w, h int) Rect {
	target := TargetW / TargetH
	if float64(w)/float64(h) > target {
		// Wider than 9:16: keep full height, trim the sides.
		nw := clampEven(float64(h)*target, w)
		return Rect{X: (w - nw) / 2, Y: 0, W: nw, H: evenFloor(h)}
	}
	// Narrower than or equal to 9:16: keep full width, trim top/bottom.
	nh := clampEven(float64(w)/target, h)
	return Rect{X: 0, Y: (h - nh) / 2, W: evenFloor(w), H: nh}
}

func clampEven(f float64, limit int) int {
	n := int(math.Round(f))
	if n%2 != 0 {
		n++
	}
	if n > limit {
		n = evenFloor(limit)
	}
	if n < 2 {
		n = 2
	}
	return n
}

func evenFloor(n int) int {
	return n &^ 1
}
