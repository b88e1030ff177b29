package control

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bluefox/agrobot/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Frame is the JSON envelope of every websocket message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type uiUpdate struct {
	ID  string `json:"id"`
	Val int    `json:"val"`
}

// EncodeEvent converts an outbound event to its wire frame.
func EncodeEvent(e event.Event) (Frame, error) {
	var v interface{}
	switch e.Kind {
	case event.UpdateUI:
		v = uiUpdate{ID: e.Channel.String(), Val: e.Value}
	default:
		v = e.Text
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: string(e.Kind), Data: data}, nil
}

// WSHandler serves the operator's websocket session: inbound frames go to the
// Dispatcher and every bus event is pushed back out.
type WSHandler struct {
	Dispatcher *Dispatcher
	Bus        *event.Bus
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("ERROR: upgrade:", err)
		return
	}
	defer ws.Close()

	events, cancel := h.Bus.Subscribe(64)
	defer cancel()

	replies := make(chan Frame, 8)
	done := make(chan struct{})
	go h.readLoop(req.Context(), ws, replies, done)

	write := func(f Frame) bool {
		if err := ws.WriteJSON(f); err != nil {
			log.Println("ERROR: send:", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			return
		case f := <-replies:
			if !write(f) {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			f, err := EncodeEvent(e)
			if err != nil {
				log.Println("ERROR: encode:", err)
				continue
			}
			if !write(f) {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, ws *websocket.Conn, replies chan<- Frame, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("ERROR: read:", err)
			}
			return
		}
		if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Println("ERROR: parse:", err)
			continue
		}
		if err := h.Dispatcher.Handle(ctx, f.Event, f.Data); err != nil {
			log.Printf("ERROR: %s: %v", f.Event, err)
			msg, _ := json.Marshal(err.Error())
			select {
			case replies <- Frame{Event: string(event.Status), Data: msg}:
			default:
			}
		}
	}
}
