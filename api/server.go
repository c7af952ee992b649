// Package api exposes the engine over HTTP: order submission and book
// queries as REST, the live feed as a WebSocket stream, prometheus
// under /metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/engine"
	"clob/feed"
	"clob/params"
	"clob/wire"
)

type Server struct {
	log  *zap.Logger
	eng  *engine.Engine
	dist *feed.Distributor
	cfg  params.API

	router *mux.Router
	httpd  *http.Server
}

func NewServer(log *zap.Logger, eng *engine.Engine, dist *feed.Distributor, reg *prometheus.Registry, cfg params.API) *Server {
	s := &Server{
		log:    log.Named("api"),
		eng:    eng,
		dist:   dist,
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.httpd = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(s.router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the full middleware stack, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpd.Handler
}

// Start blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("api listening", zap.String("addr", s.cfg.Addr))
	err := s.httpd.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpd.Shutdown(ctx)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request", err.Error())
		return
	}

	var side orderbook.Side
	switch req.Side {
	case "buy":
		side = orderbook.Buy
	case "sell":
		side = orderbook.Sell
	default:
		respondError(w, http.StatusBadRequest, "invalid side", req.Side)
		return
	}

	price, err := wire.ParseTicks(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid price", err.Error())
		return
	}
	qty, err := wire.ParseTicks(req.Qty)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid qty", err.Error())
		return
	}

	seq, err := s.eng.Submit(side, price, qty)
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
	case errors.Is(err, engine.ErrBackpressure):
		respondError(w, http.StatusServiceUnavailable, "engine busy", "retry later")
	case errors.Is(err, engine.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "shutting down", "")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "submit failed", err.Error())
	default:
		respondJSON(w, http.StatusOK, SubmitOrderResponse{Seq: seq, Accepted: true})
	}
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, depthOf(s.eng.Snapshot()))
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st := s.eng.Stats()
	respondJSON(w, http.StatusOK, StatsResponse{
		Accepted: st.Accepted,
		Rejected: st.Rejected,
		Trades:   st.Trades,
		Volume:   wire.FormatTicks(int64(st.Volume)),
		LastSeq:  st.LastSeq,
		Resting:  st.Resting,
		Queued:   st.Queued,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		LastSeq: s.eng.Stats().LastSeq,
	})
}

func depthOf(snap *engine.Snapshot) wire.Depth {
	d := wire.Depth{
		Seq:  snap.Seq,
		Bids: make([]wire.Level, 0, len(snap.Bids)),
		Asks: make([]wire.Level, 0, len(snap.Asks)),
	}
	for _, l := range snap.Bids {
		d.Bids = append(d.Bids, wire.FromLevel(l))
	}
	for _, l := range snap.Asks {
		d.Asks = append(d.Asks, wire.FromLevel(l))
	}
	return d
}
