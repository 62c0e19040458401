package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/tripsync"
)

const streamKeepAlive = 25 * time.Second

// streamView is the payload of each "trips" server-sent event.
type streamView struct {
	Trips   []domain.Trip `json:"trips"`
	Filter  domain.Filter `json:"filter"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

func toStreamView(v tripsync.View) streamView {
	out := streamView{Trips: v.Trips, Filter: v.Filter, Loading: v.Loading}
	if out.Trips == nil {
		out.Trips = []domain.Trip{}
	}
	if v.Err != nil {
		out.Error = "Unable to load trips."
	}
	return out
}

// streamTrips handles GET /trips/stream. It holds one live subscription to
// the caller's collection for as long as the connection stays open and
// sends the filtered view after every change.
func (s *Server) streamTrips(w http.ResponseWriter, r *http.Request) {
	if s.syncers == nil {
		writeError(w, http.StatusServiceUnavailable, "live updates are not configured")
		return
	}
	filter, err := bindFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.log.WarnContext(r.Context(), "clear write deadline", "error", err)
	}

	syncer := s.syncers()
	defer syncer.Close()
	syncer.SetFilter(filter)
	syncer.SetUser(r.Context(), session(r).UserID)

	views, stop := syncer.Watch()
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			if err := writeEvent(w, "trips", toStreamView(v)); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
