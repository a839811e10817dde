package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/jobs"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleJobSocket streams status updates for one job until it finishes or
// the client goes away. The first message is always the current status.
func (s *Server) handleJobSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["job_id"]

	var updates <-chan jobs.Update
	if s.notifier != nil {
		ch, cancel := s.notifier.Subscribe(id)
		defer cancel()
		updates = ch
	}

	job, err := s.jobs.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		httputil.NotFound(w, "Unknown job id")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load job")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("[API] job=%s websocket upgrade failed: %v", id, err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	current := jobs.Update{JobID: id, Status: job.Status, Error: job.Error}
	if !s.send(conn, current) || current.Status.Finished() || updates == nil {
		s.closeSocket(conn)
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !s.send(conn, u) {
				return
			}
			if u.Status.Finished() {
				s.closeSocket(conn)
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, u jobs.Update) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(u); err != nil {
		monitoring.Logf("[API] job=%s websocket write failed: %v", u.JobID, err)
		return false
	}
	return true
}

func (s *Server) closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
