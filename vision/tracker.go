// Package vision steers the arm base toward a colored target seen by the camera.
package vision

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
)

// ErrUnknownColor is returned for a tracking color other than RED or GREEN.
var ErrUnknownColor = errors.New("unknown color")

const (
	// MinWidth is the narrowest region accepted as a target, in pixels.
	MinWidth = 20

	// DeadZone is the distance from the frame center within which no
	// correction is made.
	DeadZone = 30
)

// Color is a tracking target color.
type Color int32

const (
	Red Color = iota
	Green
)

func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Green:
		return "GREEN"
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// ParseColor accepts the color names used on the control channel.
func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RED":
		return Red, nil
	case "GREEN":
		return Green, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// HSVRange is an inclusive hue/saturation/value window in OpenCV units
// (hue 0-180).
type HSVRange struct {
	Lower, Upper [3]float64
}

// Ranges returns the HSV windows that make up c. Red wraps around the hue
// circle and needs two.
func (c Color) Ranges() []HSVRange {
	switch c {
	case Red:
		return []HSVRange{
			{Lower: [3]float64{0, 120, 70}, Upper: [3]float64{10, 255, 255}},
			{Lower: [3]float64{170, 120, 70}, Upper: [3]float64{180, 255, 255}},
		}
	case Green:
		return []HSVRange{
			{Lower: [3]float64{35, 50, 50}, Upper: [3]float64{85, 255, 255}},
		}
	}
	return nil
}

// Correction is the base adjustment decided for one frame.
type Correction int

const (
	None  Correction = 0
	Left  Correction = 1  // target left of center, base angle increases
	Right Correction = -1 // target right of center, base angle decreases
)

// Tracker turns the base toward the largest region of the configured color
// while a harvest is tracking.
type Tracker struct {
	Coord *activity.Coordinator
	Arm   *actuator.Arm

	color atomic.Int32
}

// Configure selects the color subsequent frames are segmented by.
func (t *Tracker) Configure(c Color) { t.color.Store(int32(c)) }

// Color returns the configured color.
func (t *Tracker) Color() Color { return Color(t.color.Load()) }

// Active reports whether frames should be segmented at all.
func (t *Tracker) Active() bool { return t.Coord.Active(activity.Tracking) }

// Accept reports whether region is large enough to be a target.
func Accept(region image.Rectangle) bool {
	return !region.Empty() && region.Dx() >= MinWidth
}

// Decide computes the correction for a region in a frame of the given width.
func Decide(region image.Rectangle, frameWidth int) Correction {
	if !Accept(region) {
		return None
	}
	cx := region.Min.X + region.Dx()/2
	center := frameWidth / 2
	switch {
	case cx < center-DeadZone:
		return Left
	case cx > center+DeadZone:
		return Right
	}
	return None
}

// Observe applies the correction for region, sending the new base angle when
// one is needed. It does nothing while tracking is inactive.
func (t *Tracker) Observe(region image.Rectangle, frameWidth int) Correction {
	if !t.Active() {
		return None
	}
	c := Decide(region, frameWidth)
	if c != None {
		t.Arm.Nudge(arm.Base, int(c))
	}
	return c
}
