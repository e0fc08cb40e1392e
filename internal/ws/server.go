// Package ws streams metric series over websockets. Each connection may
// change its selection at any time; only the answer to the latest
// selection is delivered.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"barmetrics-service/internal/evolution"
	"barmetrics-service/internal/reconcile"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const selectionKey = "evolucao"

var staleResults = promauto.NewCounter(prometheus.CounterOpts{
	Name: "barmetrics_ws_stale_results_total",
	Help: "Series computed for a selection that was superseded before delivery",
})

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Evolver interface {
	Evolution(ctx context.Context, req evolution.Request) (evolution.Result, error)
}

type Server struct {
	Service   Evolver
	Logger    *zap.Logger
	Heartbeat time.Duration
}

func New(service Evolver, logger *zap.Logger, heartbeat time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Server{Service: service, Logger: logger, Heartbeat: heartbeat}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

// writeCurrent writes value only if the ticket is still the latest selection.
// The check runs under the write lock so a frame cannot go out after a newer
// answer has been written.
func (c *client) writeCurrent(ticket Ticket, value any) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !ticket.Current() {
		return false, nil
	}
	return true, c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

type selection struct {
	Metric string `json:"metric"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type message struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation,omitempty"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (s *Server) EvolutionWS(w http.ResponseWriter, r *http.Request) {
	barID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("bar_id")), 10, 64)
	if err != nil || barID <= 0 {
		http.Error(w, "bar_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{conn: conn}
	gens := NewGenerations()
	var inflight sync.WaitGroup
	defer inflight.Wait()
	defer gens.CancelAll()

	go s.heartbeat(ctx, c)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sel selection
		if err := json.Unmarshal(raw, &sel); err != nil {
			_ = c.writeJSON(message{Type: "evolucao.error", Error: "INVALID_MESSAGE", Message: err.Error()})
			continue
		}
		req, err := sel.request(barID)
		if err != nil {
			_ = c.writeJSON(message{Type: "evolucao.error", Error: "VALIDATION_ERROR", Message: err.Error()})
			continue
		}

		ticket := gens.Begin(ctx, selectionKey)
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer ticket.Done()
			s.answer(c, ticket, req)
		}()
	}
}

func (s *Server) answer(c *client, ticket Ticket, req evolution.Request) {
	res, err := s.Service.Evolution(ticket.Ctx, req)
	var reply message
	if err != nil {
		if ticket.Current() {
			s.Logger.Warn("ws evolution failed", zap.Int64("barId", req.BarID), zap.Error(err))
		}
		reply = message{Type: "evolucao.error", Generation: ticket.Gen, Error: "EVOLUTION_FAILED", Message: "failed to build series"}
	} else {
		reply = message{Type: "evolucao.series", Generation: ticket.Gen, Data: res.Payload()}
	}

	if sent, _ := c.writeCurrent(ticket, reply); !sent {
		staleResults.Inc()
		s.Logger.Debug("dropping stale series",
			zap.Int64("barId", req.BarID),
			zap.String("metric", string(req.Metric)),
			zap.Uint64("generation", ticket.Gen),
		)
	}
}

func (s *Server) heartbeat(ctx context.Context, c *client) {
	ticker := time.NewTicker(s.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (sel selection) request(barID int64) (evolution.Request, error) {
	metric, err := reconcile.ParseMetric(sel.Metric)
	if err != nil {
		return evolution.Request{}, err
	}
	start, err := reconcile.ParseDay(sel.Start)
	if err != nil {
		return evolution.Request{}, err
	}
	end, err := reconcile.ParseDay(sel.End)
	if err != nil {
		return evolution.Request{}, err
	}
	if end.Before(start) {
		return evolution.Request{}, reconcile.ErrInvalidDay
	}
	return evolution.Request{BarID: barID, Metric: metric, Start: start, End: end}, nil
}
