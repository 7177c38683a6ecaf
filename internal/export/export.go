// Package export writes route quote comparisons to spreadsheets: one row for
// the winner, one per alternate and one per failed router.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Row kinds.
const (
	KindBest      = "best"
	KindAlternate = "alternate"
	KindFailed    = "failed"
)

// QuoteRow is one line of a quote comparison.
type QuoteRow struct {
	RequestedAt time.Time
	RequestID   string
	Kind        string
	Router      domain.RouterID
	RouteID     string
	Slippage    float64
	FromAmount  decimal.Decimal
	FromUSD     decimal.Decimal
	ToAmount    decimal.Decimal
	ToUSD       decimal.Decimal
	GasUSD      decimal.Decimal
	ProtocolUSD decimal.Decimal
	PlatformUSD decimal.Decimal
	TotalUSD    decimal.Decimal
	Duration    int
	ErrorCode   domain.ErrorCode
	Error       string
}

var header = []any{
	"Requested At", "Request ID", "Kind", "Router", "Route ID", "Slippage %",
	"From Amount", "From USD", "To Amount", "To USD",
	"Gas USD", "Protocol USD", "Platform USD", "Total Fees USD",
	"Duration s", "Error Code", "Error",
}

// SheetWriter writes quote rows to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, rows []QuoteRow) error
}

// RouteGetter resolves a route request.
type RouteGetter interface {
	GetRoute(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error)
}

// Service quotes a request and hands the comparison to a SheetWriter.
type Service struct {
	routes RouteGetter
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(routes RouteGetter, writer SheetWriter) *Service {
	if routes == nil || writer == nil {
		panic("export.NewService: dependencies must not be nil")
	}
	return &Service{routes: routes, writer: writer}
}

// Export quotes req and writes the comparison.
func (s *Service) Export(ctx context.Context, req domain.RouteRequest) (domain.RouteResponse, error) {
	resp, err := s.routes.GetRoute(ctx, req)
	if err != nil {
		return domain.RouteResponse{}, fmt.Errorf("quoting route: %w", err)
	}
	if err := s.writer.Write(ctx, Rows(resp)); err != nil {
		return resp, fmt.Errorf("writing quote comparison: %w", err)
	}
	return resp, nil
}

// Rows flattens a response into comparison rows. Amounts are in human units.
func Rows(resp domain.RouteResponse) []QuoteRow {
	rows := make([]QuoteRow, 0, 1+len(resp.Alternates)+len(resp.Errors))
	rows = append(rows, routeRow(resp, KindBest, resp.Route))
	for _, alt := range resp.Alternates {
		rows = append(rows, routeRow(resp, KindAlternate, alt))
	}
	rows = append(rows, lo.Map(resp.Errors, func(e domain.RouterError, _ int) QuoteRow {
		return QuoteRow{
			RequestedAt: resp.Timestamp,
			RequestID:   resp.RequestID,
			Kind:        KindFailed,
			Router:      e.Router,
			ErrorCode:   e.Code,
			Error:       e.Message,
		}
	})...)
	return rows
}

func routeRow(resp domain.RouteResponse, kind string, r domain.RouterRoute) QuoteRow {
	return QuoteRow{
		RequestedAt: resp.Timestamp,
		RequestID:   resp.RequestID,
		Kind:        kind,
		Router:      r.Router,
		RouteID:     r.ID,
		Slippage:    r.Slippage,
		FromAmount:  humanAmount(r.FromToken),
		FromUSD:     domain.SafeParse(lo.FromPtr(r.FromToken.AmountUSD)),
		ToAmount:    humanAmount(r.ToToken),
		ToUSD:       domain.SafeParse(lo.FromPtr(r.ToToken.AmountUSD)),
		GasUSD:      domain.SafeParse(r.Fees.GasUSD),
		ProtocolUSD: domain.SafeParse(r.Fees.ProtocolUSD),
		PlatformUSD: domain.SafeParse(r.Fees.PlatformUSD),
		TotalUSD:    domain.SafeParse(r.Fees.TotalUSD),
		Duration:    r.EstimatedDurationSeconds,
	}
}

func humanAmount(leg domain.RouteLeg) decimal.Decimal {
	d := 18
	if leg.Token.Decimals != nil {
		d = *leg.Token.Decimals
	}
	return domain.FromBaseUnits(leg.Amount, d)
}

// values renders a row as spreadsheet cells. Failed rows leave numbers empty.
func (r QuoteRow) values() []any {
	out := []any{
		r.RequestedAt.UTC().Format(time.RFC3339), r.RequestID, r.Kind, string(r.Router), r.RouteID,
	}
	if r.Kind == KindFailed {
		out = append(out, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
		return append(out, string(r.ErrorCode), r.Error)
	}
	return append(out,
		r.Slippage,
		toFloat(r.FromAmount), toFloat(r.FromUSD),
		toFloat(r.ToAmount), toFloat(r.ToUSD),
		toFloat(r.GasUSD), toFloat(r.ProtocolUSD), toFloat(r.PlatformUSD), toFloat(r.TotalUSD),
		r.Duration, "", "",
	)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
