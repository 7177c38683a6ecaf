package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/mtlprog/swaproute/internal/domain"
	"github.com/mtlprog/swaproute/internal/router"
)

// payloadSwapPairs are raw-quote fields that name the input and output side.
var payloadSwapPairs = [][2]string{
	{"tokenIn", "tokenOut"},
	{"inputMint", "outputMint"},
	{"fromToken", "toToken"},
	{"fromChainId", "toChainId"},
}

// payloadPathKeys are raw-quote arrays listing hops in execution order.
var payloadPathKeys = []string{"path", "route", "routePlan", "includedSteps"}

// reverse solves an output-driven request by quoting the inverted pair with the
// desired output as input. If that fails, the desired amount is forwarded as an
// input amount on the original direction and the route is flagged. Routes come
// back in the caller's direction, not yet enriched.
func (e *Engine) reverse(ctx context.Context, req domain.RouteRequest, requestID string) (domain.RouteResponse, map[domain.RouterID]router.Profile, error) {
	inverted := req
	inverted.FromToken, inverted.ToToken = req.ToToken, req.FromToken
	inverted.FromAmount, inverted.ToAmount = req.ToAmount, ""

	resp, profiles, err := e.forward(ctx, inverted, requestID)
	if err == nil {
		resp.Route = reverseRoute(resp.Route)
		for i := range resp.Alternates {
			resp.Alternates[i] = reverseRoute(resp.Alternates[i])
		}
		return resp, profiles, nil
	}

	slog.Warn("reverse routing failed, forwarding desired amount as input",
		"request_id", requestID,
		"from", req.FromToken.String(),
		"to", req.ToToken.String(),
		"amount", req.ToAmount,
		"error", err,
	)

	fallback := req
	fallback.FromAmount, fallback.ToAmount = req.ToAmount, ""

	resp, profiles, fbErr := e.forward(ctx, fallback, requestID)
	if fbErr != nil {
		return domain.RouteResponse{}, nil, fbErr
	}
	resp.Route.ReverseFallback = true
	for i := range resp.Alternates {
		resp.Alternates[i].ReverseFallback = true
	}
	return resp, profiles, nil
}

// reverseRoute rewrites a route quoted on the inverted pair into forward direction.
func reverseRoute(r domain.RouterRoute) domain.RouterRoute {
	r.FromToken, r.ToToken = r.ToToken, r.FromToken
	r.ExchangeRate = domain.InvertRate(r.ExchangeRate)
	r.Raw = reversePayload(r.Raw)
	r.Reversed = true
	return r
}

// reversePayload swaps input/output fields and reverses hop arrays anywhere in
// the raw quote. Payloads that are not JSON objects are returned unchanged.
func reversePayload(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return raw
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}
	out, err := json.Marshal(reverseNode(doc))
	if err != nil {
		return raw
	}
	return out
}

func reverseNode(node any) any {
	switch v := node.(type) {
	case map[string]any:
		for _, pair := range payloadSwapPairs {
			a, okA := v[pair[0]]
			b, okB := v[pair[1]]
			if okA || okB {
				setOrDelete(v, pair[0], b, okB)
				setOrDelete(v, pair[1], a, okA)
			}
		}
		for k, child := range v {
			v[k] = reverseNode(child)
		}
		for _, key := range payloadPathKeys {
			if arr, ok := v[key].([]any); ok {
				slices.Reverse(arr)
			}
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = reverseNode(child)
		}
		return v
	default:
		return node
	}
}

func setOrDelete(m map[string]any, key string, val any, ok bool) {
	if ok {
		m[key] = val
		return
	}
	delete(m, key)
}
