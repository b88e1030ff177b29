// Package cvtrack runs the color tracker on OpenCV frames.
package cvtrack

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/bluefox/agrobot/vision"
)

var boxColor = color.RGBA{0, 255, 0, 255}

// Largest returns the bounding box of the largest region of c in a BGR frame.
func Largest(frame gocv.Mat, c vision.Color) (image.Rectangle, bool) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	for i, r := range c.Ranges() {
		lo := gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
		hi := gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)
		if i == 0 {
			gocv.InRangeWithScalar(hsv, lo, hi, &mask)
			continue
		}
		part := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lo, hi, &part)
		gocv.BitwiseOr(mask, part, &mask)
		part.Close()
	}
	if mask.Empty() {
		return image.Rectangle{}, false
	}

	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	var bestArea float64
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if best < 0 || area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return image.Rectangle{}, false
	}
	return gocv.BoundingRect(contours.At(best)), true
}

// Processor annotates frames and feeds the tracker.
type Processor struct {
	Tracker *vision.Tracker
}

// ProcessFrame is a passthrough while tracking is inactive. Otherwise it finds
// the target, outlines it and applies the base correction.
func (p *Processor) ProcessFrame(frame *gocv.Mat) vision.Correction {
	if p.Tracker == nil || !p.Tracker.Active() || frame.Empty() {
		return vision.None
	}
	region, ok := Largest(*frame, p.Tracker.Color())
	if !ok || !vision.Accept(region) {
		return vision.None
	}
	gocv.Rectangle(frame, region, boxColor, 2)
	return p.Tracker.Observe(region, frame.Cols())
}
