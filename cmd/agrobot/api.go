package main

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"

	"github.com/bluefox/agrobot/control"
	"github.com/bluefox/agrobot/diagnosis"
	"github.com/bluefox/agrobot/event"
	"github.com/bluefox/agrobot/store"
)

type api struct {
	http.Handler
	r      *robot
	sse    *sse.Server
	cancel func()
}

func newAPI(ctx context.Context, r *robot) *api {
	router := mux.NewRouter()

	a := &api{
		Handler: router,
		r:       r,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	router.Handle("/ws", &control.WSHandler{Dispatcher: r.dispatcher, Bus: r.bus})
	router.PathPrefix("/events/").Handler(a.sse)
	router.HandleFunc("/video_feed", a.videoFeed)
	router.HandleFunc("/command", a.command).Methods("GET", "POST")
	router.HandleFunc("/predict", a.predict).Methods("GET", "POST")
	router.HandleFunc("/api/scans", a.scans).Methods("GET")
	router.HandleFunc("/api/diseases/{label:[0-9]+}", a.disease).Methods("GET")
	router.HandleFunc("/api/pose", a.pose).Methods("GET")
	router.HandleFunc("/api/distance", a.distance).Methods("GET")

	events, cancel := r.bus.Subscribe(64)
	a.cancel = cancel
	go func() {
		for e := range events {
			f, err := control.EncodeEvent(e)
			if err != nil {
				log.Printf("ERROR: encode event: %+v", err)
				continue
			}
			ch := "/events/status"
			if e.Kind == event.UpdateUI {
				ch = "/events/ui"
			}
			a.sse.SendMessage(ch, sse.SimpleMessage(string(f.Data)))
		}
	}()
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return a
}

func (a *api) Close() {
	a.cancel()
	a.sse.Shutdown()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func (a *api) videoFeed(w http.ResponseWriter, req *http.Request) {
	if a.r.stream == nil {
		http.Error(w, "camera not available", http.StatusServiceUnavailable)
		return
	}
	a.r.stream.Buffer.ServeHTTP(w, req)
}

func (a *api) command(w http.ResponseWriter, req *http.Request) {
	err := a.r.dispatcher.Car(req.FormValue("cmd"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Write([]byte("OK"))
}

func (a *api) predict(w http.ResponseWriter, req *http.Request) {
	res, err := a.r.diagnosis.Diagnose(req.Context(), a.r.snapshot())
	if err != nil {
		log.Printf("ERROR: predict: %+v", err)
	}
	writeJSON(w, res)
}

func (a *api) scans(w http.ResponseWriter, req *http.Request) {
	limit := 20
	if s := req.FormValue("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := a.r.db.RecentScans(limit)
	if err != nil {
		log.Printf("ERROR: scans: %+v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	if recs == nil {
		recs = []store.ScanRecord{}
	}
	writeJSON(w, recs)
}

func (a *api) disease(w http.ResponseWriter, req *http.Request) {
	label, _ := strconv.Atoi(mux.Vars(req)["label"])
	d, ok := diagnosis.Lookup(label)
	if !ok {
		http.NotFound(w, req)
		return
	}
	writeJSON(w, d)
}

func (a *api) pose(w http.ResponseWriter, req *http.Request) {
	res := make(map[string]int, 4)
	for ch, angle := range a.r.arm.Pose.Snapshot() {
		res[ch.String()] = angle
	}
	writeJSON(w, res)
}

func (a *api) distance(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, map[string]int{"distance": a.r.arm.Link.QueryDistance(req.Context())})
}
