package reports

import (
	"context"
	"fmt"

	"envmon/internal/blob"
	"envmon/internal/core"
	"envmon/pkg/domain"
)

// History reads and prunes generated reports together with their artifacts.
type History struct {
	svc   *core.Service
	blobs blob.Store
}

// NewHistory returns a history view. blobs may be nil.
func NewHistory(svc *core.Service, blobs blob.Store) *History {
	return &History{svc: svc, blobs: blobs}
}

// List returns entries newest first.
func (h *History) List(ctx context.Context) ([]domain.ReportHistoryEntry, error) {
	return h.svc.ListReportHistory(ctx)
}

// Search filters entries case-insensitively.
func (h *History) Search(ctx context.Context, term string) ([]domain.ReportHistoryEntry, error) {
	return h.svc.SearchReportHistory(ctx, term)
}

// Get returns one entry.
func (h *History) Get(ctx context.Context, id string) (domain.ReportHistoryEntry, error) {
	return h.svc.GetReportHistory(ctx, id)
}

// Download returns the stored artifact of an entry.
func (h *History) Download(ctx context.Context, id string) (domain.ReportHistoryEntry, []byte, error) {
	entry, err := h.svc.GetReportHistory(ctx, id)
	if err != nil {
		return domain.ReportHistoryEntry{}, nil, err
	}
	if h.blobs == nil || entry.ArtifactKey == "" {
		return entry, nil, fmt.Errorf("report %s has no stored artifact", id)
	}
	data, _, err := blob.ReadBytes(ctx, h.blobs, entry.ArtifactKey)
	if err != nil {
		return entry, nil, err
	}
	return entry, data, nil
}

// Delete removes an entry and its artifact.
func (h *History) Delete(ctx context.Context, id string) error {
	entry, err := h.svc.GetReportHistory(ctx, id)
	if err != nil {
		return err
	}
	if _, err := h.svc.DeleteReportHistory(ctx, id); err != nil {
		return err
	}
	if h.blobs != nil && entry.ArtifactKey != "" {
		if _, err := h.blobs.Delete(ctx, entry.ArtifactKey); err != nil {
			return fmt.Errorf("delete artifact: %w", err)
		}
	}
	return nil
}

// Clear removes every entry and every stored report artifact.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.svc.ClearReportHistory(ctx); err != nil {
		return err
	}
	if h.blobs == nil {
		return nil
	}
	infos, err := h.blobs.List(ctx, blob.PrefixReports)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if _, err := h.blobs.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete artifact: %w", err)
		}
	}
	return nil
}
