package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mtlprog/swaproute/internal/autoslippage"
	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/engine"
	"github.com/mtlprog/swaproute/internal/export"
	"github.com/mtlprog/swaproute/internal/price"
)

// DefaultSlippage applies to fixed-mode requests that omit slippage.
const DefaultSlippage = 0.5

// RouteService resolves route requests in either slippage mode.
type RouteService interface {
	GetRoute(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error)
}

// PriceService resolves single token prices.
type PriceService interface {
	PriceOf(ctx context.Context, address string, chainID domain.ChainID, symbol string) (domain.TokenPrice, error)
}

// Handler provides HTTP endpoints for the routing API.
type Handler struct {
	routes RouteService
	prices PriceService
}

// NewHandler creates a new API handler.
func NewHandler(routes RouteService, prices PriceService) *Handler {
	return &Handler{routes: routes, prices: prices}
}

// GetRoute handles GET /api/v1/route.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRouteRequest(r.URL.Query())
	if err != nil {
		writeRouteError(w, err)
		return
	}
	resp, err := h.routes.GetRoute(r.Context(), req)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportRoute handles GET /api/v1/route/export. It quotes like GetRoute and
// returns the comparison as an XLSX workbook.
func (h *Handler) ExportRoute(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRouteRequest(r.URL.Query())
	if err != nil {
		writeRouteError(w, err)
		return
	}
	resp, err := h.routes.GetRoute(r.Context(), req)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.NewXLSXWriter(&buf).Write(r.Context(), export.Rows(resp)); err != nil {
		slog.Error("failed to build quote workbook", "request_id", resp.RequestID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quote-%s.xlsx"`, resp.RequestID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
	}
}

// GetPrice handles GET /api/v1/price.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chainID, err := domain.ParseChainID(q.Get("chain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chain")
		return
	}
	address := q.Get("address")
	if !domain.ValidAddress(chainID, address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	p, err := h.prices.PriceOf(r.Context(), address, chainID, q.Get("symbol"))
	if err != nil {
		if errors.Is(err, price.ErrNoPrice) {
			writeError(w, http.StatusNotFound, "no price available")
			return
		}
		slog.Error("failed to get price", "chain", chainID, "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ParseRouteRequest builds a RouteRequest from query parameters. Only syntax
// is checked here; semantic validation is left to the engine.
func ParseRouteRequest(q url.Values) (domain.RouteRequest, error) {
	from, err := parseToken(q, "from")
	if err != nil {
		return domain.RouteRequest{}, err
	}
	to, err := parseToken(q, "to")
	if err != nil {
		return domain.RouteRequest{}, err
	}

	req := domain.RouteRequest{
		FromToken:    from,
		ToToken:      to,
		FromAmount:   strings.TrimSpace(q.Get("fromAmount")),
		ToAmount:     strings.TrimSpace(q.Get("toAmount")),
		Slippage:     DefaultSlippage,
		SlippageMode: domain.SlippageFixed,
		Recipient:    q.Get("recipient"),
		Sender:       q.Get("sender"),
		Order:        domain.Order(strings.ToUpper(q.Get("order"))),
	}

	auto, _ := strconv.ParseBool(q.Get("auto"))
	switch s := q.Get("slippage"); {
	case auto || strings.EqualFold(s, "auto"):
		req.SlippageMode = domain.SlippageAuto
		req.Slippage = 0
	case s != "":
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.RouteRequest{}, &engine.ValidationError{Field: "slippage", Message: "must be a number or auto"}
		}
		req.Slippage = v
	}

	if s := q.Get("liquidityUsd"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.RouteRequest{}, &engine.ValidationError{Field: "liquidityUsd", Message: "must be a number"}
		}
		req.LiquidityUSD = &v
	}
	return req, nil
}

func parseToken(q url.Values, side string) (domain.Token, error) {
	chainID, err := domain.ParseChainID(q.Get(side + "Chain"))
	if err != nil {
		return domain.Token{}, &engine.ValidationError{Field: side + "Chain", Message: "must be a chain id"}
	}
	t := domain.Token{
		ChainID: chainID,
		Address: domain.NormalizeAddress(chainID, strings.TrimSpace(q.Get(side+"Token"))),
		Symbol:  q.Get(side + "Symbol"),
	}
	if s := q.Get(side + "Decimals"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d < 0 {
			return domain.Token{}, &engine.ValidationError{Field: side + "Decimals", Message: "must be a non-negative integer"}
		}
		t = t.WithDecimals(d)
	}
	return t, nil
}

type routeErrorBody struct {
	Error   string               `json:"error"`
	Code    domain.ErrorCode     `json:"code,omitempty"`
	Field   string               `json:"field,omitempty"`
	Routers []domain.RouterID    `json:"routers,omitempty"`
	Errors  []domain.RouterError `json:"errors,omitempty"`
}

// writeRouteError maps engine errors to status codes: malformed requests are
// 400, exhausted routing is 422 with the classified code.
func writeRouteError(w http.ResponseWriter, err error) {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, routeErrorBody{Error: ve.Error(), Field: ve.Field})
		return
	}
	var agg *engine.AggregateError
	if errors.As(err, &agg) {
		writeJSON(w, http.StatusUnprocessableEntity, routeErrorBody{
			Error:   err.Error(),
			Code:    agg.Code,
			Routers: agg.Routers,
			Errors:  agg.Errors,
		})
		return
	}
	var ex *autoslippage.ExhaustedError
	if errors.As(err, &ex) {
		writeJSON(w, http.StatusUnprocessableEntity, routeErrorBody{Error: err.Error(), Code: domain.CodeUnknown})
		return
	}
	slog.Error("route request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
