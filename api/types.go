package api

import (
	"encoding/json"
	"net/http"

	"clob/wire"
)

type SubmitOrderRequest struct {
	Side  string `json:"side"`  // "buy" or "sell"
	Price string `json:"price"` // decimal string
	Qty   string `json:"qty"`   // decimal string
}

type SubmitOrderResponse struct {
	Seq      uint64 `json:"seq"`
	Accepted bool   `json:"accepted"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	LastSeq uint64 `json:"last_seq"`
}

type StatsResponse struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
	Trades   uint64 `json:"trades"`
	Volume   string `json:"volume"`
	LastSeq  uint64 `json:"last_seq"`
	Resting  int    `json:"resting"`
	Queued   int    `json:"queued"`
}

// Feed message envelopes. A connection receives exactly one "snapshot"
// first, then a stream of "trade" and "book" messages in sequence
// order.
type wsSnapshot struct {
	Type string `json:"type"`
	wire.Depth
}

type wsTrade struct {
	Type string `json:"type"`
	wire.Trade
}

type wsBook struct {
	Type   string             `json:"type"`
	Seq    uint64             `json:"seq"`
	Levels []wire.LevelUpdate `json:"levels"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	respondJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}
