package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"envmon/pkg/domain"

	"github.com/samber/lo"
)

// ListClients returns all clients in stored order.
func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	var out []Client
	err := s.view(ctx, "list_clients", func(v TransactionView) error {
		out = v.ListClients()
		return nil
	})
	return out, err
}

// GetClient returns the client with id.
func (s *Service) GetClient(ctx context.Context, id string) (Client, error) {
	var out Client
	err := s.view(ctx, "get_client", func(v TransactionView) error {
		c, ok := v.FindClient(id)
		if !ok {
			return errNotFound(domain.EntityClient, id)
		}
		out = c
		return nil
	})
	return out, err
}

// SearchClients filters clients whose listed columns contain term, ignoring case.
func (s *Service) SearchClients(ctx context.Context, term string) ([]Client, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return clients, nil
	}
	return lo.Filter(clients, func(c Client, _ int) bool {
		return containsFold(needle, c.ID, c.CompanyName, c.TaxID, c.ContactName, c.Phone, c.Email, c.Address)
	}), nil
}

// CreateClient stores a new client. An empty id is replaced by the next
// CLIENT_NNN, the creation date defaults to now and the status to active.
func (s *Service) CreateClient(ctx context.Context, client Client) (Client, Result, error) {
	var created Client
	res, err := s.run(ctx, "create_client", func() string { return created.ID }, func(tx Transaction) error {
		if client.ID == "" {
			ids := lo.Map(tx.Snapshot().ListClients(), func(c Client, _ int) string { return c.ID })
			client.ID = domain.NextClientID(ids)
		}
		if client.CreatedDate.IsZero() {
			client.CreatedDate = s.clock.Now()
		}
		if client.Status == "" {
			client.Status = domain.ClientStatusActive
		}
		var err error
		created, err = tx.CreateClient(client)
		return err
	})
	return created, res, err
}

// UpdateClient shallow-merges partial onto the stored client.
func (s *Service) UpdateClient(ctx context.Context, id string, partial map[string]any) (Client, Result, error) {
	var updated Client
	res, err := s.run(ctx, "update_client", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateClient(id, func(c *Client) error {
			return domain.MergePartial(c, partial)
		})
		return err
	})
	return updated, res, err
}

// DeleteClient removes a client that no project references.
func (s *Service) DeleteClient(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_client", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteClient(id)
	})
}

// RefreshProjectCounts recomputes projectCount for every client.
func (s *Service) RefreshProjectCounts(ctx context.Context) (Result, error) {
	return s.run(ctx, "refresh_project_counts", nil, func(tx Transaction) error {
		for _, c := range tx.Snapshot().ListClients() {
			if _, err := tx.RecountClient(c.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// HistoryEvent is one line of a client's activity history.
type HistoryEvent struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// ClientHistory lists project creation and completion events plus the client
// creation itself, newest first.
func (s *Service) ClientHistory(ctx context.Context, id string) ([]HistoryEvent, error) {
	var events []HistoryEvent
	err := s.view(ctx, "client_history", func(v TransactionView) error {
		client, ok := v.FindClient(id)
		if !ok {
			return errNotFound(domain.EntityClient, id)
		}
		for _, p := range v.ListProjects() {
			if p.ClientID != id {
				continue
			}
			events = append(events, HistoryEvent{Date: p.CreatedDate, Description: "新增專案：" + p.ProjectName})
			if p.Status == domain.ProjectStatusCompleted {
				if day, err := p.MonitoringDay(); err == nil {
					events = append(events, HistoryEvent{Date: day, Description: "完成專案：" + p.ProjectName})
				}
			}
		}
		events = append(events, HistoryEvent{Date: client.CreatedDate, Description: "建立客戶資料"})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.After(events[j].Date) })
	return events, nil
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
