package core

import (
	"context"
	"strings"

	"envmon/pkg/domain"

	"github.com/samber/lo"
)

// AddReportHistory prepends entry to the history, keeping the newest
// ReportHistoryLimit entries.
func (s *Service) AddReportHistory(ctx context.Context, entry ReportHistoryEntry) (ReportHistoryEntry, Result, error) {
	var saved ReportHistoryEntry
	res, err := s.run(ctx, "add_report_history", func() string { return entry.ID }, func(tx Transaction) error {
		if entry.GenerationTime.IsZero() {
			entry.GenerationTime = s.clock.Now()
		}
		var err error
		saved, err = tx.PrependReport(entry, ReportHistoryLimit)
		return err
	})
	return saved, res, err
}

// ListReportHistory returns history entries, newest first.
func (s *Service) ListReportHistory(ctx context.Context) ([]ReportHistoryEntry, error) {
	var out []ReportHistoryEntry
	err := s.view(ctx, "list_report_history", func(v TransactionView) error {
		out = v.ListReports()
		return nil
	})
	return out, err
}

// GetReportHistory returns one entry.
func (s *Service) GetReportHistory(ctx context.Context, id string) (ReportHistoryEntry, error) {
	var out ReportHistoryEntry
	err := s.view(ctx, "get_report_history", func(v TransactionView) error {
		r, ok := v.FindReport(id)
		if !ok {
			return errNotFound(domain.EntityReport, id)
		}
		out = r
		return nil
	})
	return out, err
}

// SearchReportHistory filters entries by name, project, type or format.
func (s *Service) SearchReportHistory(ctx context.Context, term string) ([]ReportHistoryEntry, error) {
	entries, err := s.ListReportHistory(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return entries, nil
	}
	return lo.Filter(entries, func(r ReportHistoryEntry, _ int) bool {
		return containsFold(needle, r.Name, r.ProjectID, r.ReportType, r.OutputFormat, r.Status)
	}), nil
}

// DeleteReportHistory removes one entry.
func (s *Service) DeleteReportHistory(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_report_history", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteReport(id)
	})
}

// ClearReportHistory removes the history key entirely.
func (s *Service) ClearReportHistory(ctx context.Context) (Result, error) {
	return s.run(ctx, "clear_report_history", nil, func(tx Transaction) error {
		return tx.ClearReports()
	})
}
