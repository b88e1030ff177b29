// Package diagnosis classifies a camera snapshot of a plant and sprays it
// when a disease is found.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/store"
)

var (
	// ErrClassifierUnavailable is returned when no classifier is configured.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrNoImage is returned when there is no camera frame to classify.
	ErrNoImage = errors.New("no image")
)

// SprayByte starts the sprayer on the microcontroller.
const SprayByte = 'p'

// A Classifier labels a JPEG image. Confidence is in [0,1].
type Classifier interface {
	Classify(ctx context.Context, jpeg []byte) (label int, confidence float64, err error)
}

// Result is reported to the operator after a scan.
type Result struct {
	Disease
	Label    int     `json:"label"`
	Accuracy float64 `json:"accuracy"`
	Action   string  `json:"action"`
}

var errorResult = Result{
	Disease: Disease{Name: "Error", Cause: "Model Error", Solution: "Check System", Link: "#"},
	Label:   -1,
	Action:  "None",
}

// ScanStore keeps scan history.
type ScanStore interface {
	SaveScan(rec *store.ScanRecord) error
}

type Service struct {
	Classifier Classifier
	Link       actuator.Link
	Scans      ScanStore
}

// Diagnose classifies img. A failing or missing classifier yields the error
// result together with the error; it never panics.
func (s *Service) Diagnose(ctx context.Context, img []byte) (Result, error) {
	if s.Classifier == nil {
		return errorResult, ErrClassifierUnavailable
	}
	if len(img) == 0 {
		return errorResult, ErrNoImage
	}
	label, conf, err := s.Classifier.Classify(ctx, img)
	if err != nil {
		log.Println("ERROR: classify:", err)
		return errorResult, fmt.Errorf("classify: %w", err)
	}

	d, known := Lookup(label)
	res := Result{
		Disease:  d,
		Label:    label,
		Accuracy: math.Round(conf*10000) / 100,
		Action:   "None",
	}
	if !known {
		log.Printf("ERROR: classifier returned unknown label %d", label)
	} else if label != HealthyLabel {
		res.Action = "Spray"
		if s.Link != nil {
			if err := s.Link.WriteByte(SprayByte); err != nil {
				log.Println("ERROR: spray:", err)
			}
		}
	}

	if s.Scans != nil {
		rec := &store.ScanRecord{
			Label:      label,
			Class:      d.Class,
			Name:       d.Name,
			Confidence: res.Accuracy,
			Action:     res.Action,
		}
		if err := s.Scans.SaveScan(rec); err != nil {
			log.Println("ERROR: save scan:", err)
		}
	}

	return res, nil
}
