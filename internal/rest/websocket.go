package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godilite/feedback-kiosk/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 4096
)

const (
	actionFilter = "filter"
	actionPage   = "page"
	actionYear   = "year"
)

type wsMessage struct {
	Type  string               `json:"type"`
	Data  *service.DerivedView `json:"data,omitempty"`
	Error string               `json:"error,omitempty"`
}

// wsAction is a list or year change requested by a dashboard client.
type wsAction struct {
	Action string `json:"action"`
	Rating int    `json:"rating"`
	Page   int    `json:"page"`
	Year   int    `json:"year"`

	invalid bool
}

func newUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(origins, "*") {
				return true
			}
			if len(origins) == 0 {
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			}
			return slices.Contains(origins, origin)
		},
	}
}

// dashboardSession is the state of one websocket client. Each session owns
// its list selection, so filters and pages are independent across clients.
type dashboardSession struct {
	dashboard DashboardService
	conn      *websocket.Conn
	logger    *zap.Logger

	query service.ViewQuery
	list  *service.ListView
	snap  service.Snapshot
}

func (h *Handlers) dashboardSocket(upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q service.ViewQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			abortWithError(c, http.StatusBadRequest, "rating, page and year must be integers")
			return
		}
		if err := q.Validate(); err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		s := &dashboardSession{
			dashboard: h.dashboard,
			conn:      conn,
			logger:    h.logger.With(zap.String("client_ip", c.ClientIP())),
			query:     q,
		}
		s.logger.Debug("dashboard client connected")
		s.serve(c.Request.Context())
		s.logger.Debug("dashboard client disconnected")
	}
}

func (s *dashboardSession) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	updates, stop := s.dashboard.Watch(ctx)
	defer stop()

	actions := make(chan wsAction)
	go s.readActions(ctx, cancel, actions)

	// Watch stays silent until the source reports something.
	if snap := s.dashboard.Current(); !snap.Ready && snap.Err == "" {
		if err := s.push(); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				s.close(websocket.CloseGoingAway, "dashboard stopped")
				return
			}
			s.snap = snap
			if snap.Ready {
				if s.list == nil {
					s.list = s.newList(snap)
				} else {
					s.list.SetRecords(snap.Records)
				}
			}
			if err := s.push(); err != nil {
				return
			}
		case a := <-actions:
			if msg := s.apply(a); msg != "" {
				if err := s.write(wsMessage{Type: "error", Error: msg}); err != nil {
					return
				}
				continue
			}
			if err := s.push(); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// readActions is the only reader of conn. It cancels the session once the
// client goes away.
func (s *dashboardSession) readActions(ctx context.Context, cancel context.CancelFunc, out chan<- wsAction) {
	defer cancel()

	s.conn.SetReadLimit(wsMaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var a wsAction
		if err := json.Unmarshal(raw, &a); err != nil {
			a = wsAction{invalid: true}
		}
		select {
		case out <- a:
		case <-ctx.Done():
			return
		}
	}
}

func (s *dashboardSession) newList(snap service.Snapshot) *service.ListView {
	lv := service.NewListView(snap.Records)
	if s.query.Rating != 0 {
		lv.SetRatingFilter(s.query.Rating)
	}
	if s.query.Page > 1 {
		lv.SetPage(s.query.Page)
	}
	return lv
}

// apply updates the selection and returns a client error message, if any.
// Before the first snapshot the change is kept in the query and applied
// when the list is built.
func (s *dashboardSession) apply(a wsAction) string {
	if a.invalid {
		return "malformed action"
	}

	switch a.Action {
	case actionFilter:
		if err := (service.ViewQuery{Rating: a.Rating}).Validate(); err != nil {
			return err.Error()
		}
		if s.list == nil {
			if s.query.Rating == a.Rating {
				s.query.Rating = 0
			} else {
				s.query.Rating = a.Rating
			}
			s.query.Page = 0
			return ""
		}
		s.list.SetRatingFilter(a.Rating)
	case actionPage:
		if s.list == nil {
			s.query.Page = a.Page
			return ""
		}
		s.list.SetPage(a.Page)
	case actionYear:
		if err := (service.ViewQuery{Year: a.Year}).Validate(); err != nil {
			return err.Error()
		}
		s.query.Year = a.Year
	default:
		return "unknown action " + a.Action
	}
	return ""
}

// push sends the view for the current snapshot, or an error frame while the
// source has not delivered one. list is only nil before the first snapshot.
func (s *dashboardSession) push() error {
	view, err := s.dashboard.Render(s.snap, s.query.Year, s.list)
	switch {
	case err == nil:
		return s.write(wsMessage{Type: "dashboard", Data: &view})
	case errors.Is(err, service.ErrNoSnapshot):
		return s.write(wsMessage{Type: "error", Error: "feedback not loaded yet"})
	case errors.Is(err, service.ErrSourceUnavailable):
		return s.write(wsMessage{Type: "error", Error: s.snap.Err})
	default:
		s.logger.Error("failed to render dashboard", zap.Error(err))
		return s.write(wsMessage{Type: "error", Error: "internal error"})
	}
}

func (s *dashboardSession) write(msg wsMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *dashboardSession) close(code int, text string) {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}
