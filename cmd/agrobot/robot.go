package main

import (
	"context"
	"log"

	"github.com/bluefox/agrobot/activity"
	"github.com/bluefox/agrobot/actuator"
	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/camera"
	"github.com/bluefox/agrobot/config"
	"github.com/bluefox/agrobot/control"
	"github.com/bluefox/agrobot/diagnosis"
	"github.com/bluefox/agrobot/event"
	"github.com/bluefox/agrobot/harvest"
	"github.com/bluefox/agrobot/motion"
	"github.com/bluefox/agrobot/store"
	"github.com/bluefox/agrobot/vision"
	"github.com/bluefox/agrobot/vision/cvtrack"
)

// robot is every component of the controller, wired together.
type robot struct {
	cfg *config.Config

	conn       *actuator.Conn
	arm        *actuator.Arm
	coord      *activity.Coordinator
	bus        *event.Bus
	tracker    *vision.Tracker
	dispatcher *control.Dispatcher
	diagnosis  *diagnosis.Service
	db         *store.DB
	stream     *camera.Stream
}

func newRobot(ctx context.Context, cfg *config.Config, withCamera bool) (*robot, error) {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	conn := actuator.Open(cfg.Serial)
	r := &robot{
		cfg:   cfg,
		conn:  conn,
		arm:   &actuator.Arm{Link: conn, Pose: arm.NewPose()},
		coord: activity.NewCoordinator(),
		bus:   event.NewBus(),
		db:    db,
	}
	r.coord.PollInterval = cfg.PollInterval
	r.tracker = &vision.Tracker{Coord: r.coord, Arm: r.arm}

	rec := motion.NewRecorder()
	steps, err := db.LoadSequence()
	if err != nil {
		log.Println("ERROR: load sequence:", err)
	} else if len(steps) > 0 {
		rec.Load(steps)
		log.Printf("Loaded %d recorded steps", len(steps))
	}

	r.dispatcher = &control.Dispatcher{
		Arm:   r.arm,
		Coord: r.coord,
		Harvest: &harvest.Controller{
			Arm:     r.arm,
			Coord:   r.coord,
			Tracker: r.tracker,
			Events:  r.bus,
			Timings: cfg.Harvest,
		},
		Recorder: rec,
		Player: &motion.Player{
			Arm:      r.arm,
			Coord:    r.coord,
			Recorder: rec,
			Events:   r.bus,
			Timings:  cfg.Playback,
		},
		Events:    r.bus,
		Sequences: db,
		Context:   ctx,
		HomeGap:   cfg.HomeGap,
	}

	r.diagnosis = &diagnosis.Service{Link: conn, Scans: db}
	if cfg.Classifier.URL != "" {
		r.diagnosis.Classifier = diagnosis.NewRemoteClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout)
	}

	if withCamera && !cfg.Camera.Disable {
		src, err := camera.Open(cfg.Camera.Device)
		if err != nil {
			log.Printf("WARNING: camera %s: %v; video and diagnosis disabled", cfg.Camera.Device, err)
		} else {
			r.stream = &camera.Stream{
				Source:    src,
				Processor: &cvtrack.Processor{Tracker: r.tracker},
				Buffer:    camera.NewBuffer(),
				Width:     cfg.Camera.Width,
				Height:    cfg.Camera.Height,
				Quality:   cfg.Camera.Quality,
			}
		}
	}

	return r, nil
}

// snapshot returns the latest camera frame, if there is one.
func (r *robot) snapshot() []byte {
	if r.stream == nil {
		return nil
	}
	jpeg, _ := r.stream.Snapshot()
	return jpeg
}

func (r *robot) Close() {
	r.coord.ClearAll()
	r.arm.PumpOff()
	if r.stream != nil {
		r.stream.Source.Close()
	}
	r.conn.Close()
	if err := r.db.Close(); err != nil {
		log.Println("ERROR: close db:", err)
	}
}
