package http

import (
	"time"

	"moneta/internal/core"
	"moneta/internal/report"
)

type (
	// sectionResponse is the wire form of one report section. A section
	// that failed carries its error text and no data.
	sectionResponse[T any] struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
		Data  T      `json:"data,omitempty"`
	}

	reportResponse struct {
		SnapshotID   string                                         `json:"snapshot_id"`
		Generation   uint64                                         `json:"generation"`
		State        report.State                                   `json:"state"`
		Filter       string                                         `json:"filter"`
		LoadedAt     time.Time                                      `json:"loaded_at"`
		Cached       bool                                           `json:"cached"`
		Trends       sectionResponse[[]core.MonthlyTrend]           `json:"trends"`
		Transactions sectionResponse[[]core.TransactionWithDetails] `json:"transactions"`
		Accounts     sectionResponse[[]core.AccountWithBalance]     `json:"accounts"`
		Comparison   sectionResponse[report.Comparison]             `json:"comparison"`
	}

	// categoryShareResponse pairs a share with its assigned chart color.
	categoryShareResponse struct {
		core.CategoryShare
		Color string `json:"color"`
	}
)

func toSectionResponse[T any](s report.Section[T]) sectionResponse[T] {
	resp := sectionResponse[T]{OK: s.OK()}
	if s.Err != nil {
		resp.Error = s.Err.Error()
		return resp
	}
	resp.Data = s.Data
	return resp
}

func buildReportResponse(snap *report.Snapshot, cached bool) reportResponse {
	return reportResponse{
		SnapshotID:   snap.ID,
		Generation:   snap.Generation,
		State:        snap.State,
		Filter:       snap.Filter.Key(),
		LoadedAt:     snap.LoadedAt,
		Cached:       cached,
		Trends:       toSectionResponse(snap.Trends),
		Transactions: toSectionResponse(snap.Transactions),
		Accounts:     toSectionResponse(snap.Accounts),
		Comparison:   toSectionResponse(snap.Comparison),
	}
}

func buildShareResponses(shares []core.CategoryShare) []categoryShareResponse {
	out := make([]categoryShareResponse, 0, len(shares))
	for i, share := range shares {
		out = append(out, categoryShareResponse{
			CategoryShare: share,
			Color:         core.ColorAt(core.DefaultPalette, i),
		})
	}
	return out
}
