package core

import (
	"context"
	"strings"

	"envmon/pkg/domain"

	"github.com/samber/lo"
)

// ListProjects returns all projects in stored order.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := s.view(ctx, "list_projects", func(v TransactionView) error {
		out = v.ListProjects()
		return nil
	})
	return out, err
}

// GetProject returns the project with id.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	var out Project
	err := s.view(ctx, "get_project", func(v TransactionView) error {
		p, ok := v.FindProject(id)
		if !ok {
			return errNotFound(domain.EntityProject, id)
		}
		out = p
		return nil
	})
	return out, err
}

// GetProjectsByClientID scans projects for clientID.
func (s *Service) GetProjectsByClientID(ctx context.Context, clientID string) ([]Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(projects, func(p Project, _ int) bool { return p.ClientID == clientID }), nil
}

// SearchProjects filters projects by free text and, when set, status.
func (s *Service) SearchProjects(ctx context.Context, term string, status domain.ProjectStatus) ([]Project, error) {
	var out []Project
	err := s.view(ctx, "search_projects", func(v TransactionView) error {
		needle := strings.ToLower(strings.TrimSpace(term))
		for _, p := range v.ListProjects() {
			if status != "" && p.Status != status {
				continue
			}
			clientName := ""
			if c, ok := v.FindClient(p.ClientID); ok {
				clientName = c.CompanyName
			}
			if needle == "" || containsFold(needle, p.ID, p.ProjectName, clientName, p.MonitoringDate, string(p.Status), p.Progress) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// CreateProject stores a new project. An empty id is replaced by the next
// YOC{YY}-NNN for the current year. The owning client's project count is
// updated in the same transaction.
func (s *Service) CreateProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	res, err := s.run(ctx, "create_project", func() string { return created.ID }, func(tx Transaction) error {
		now := s.clock.Now()
		if project.ID == "" {
			ids := lo.Map(tx.Snapshot().ListProjects(), func(p Project, _ int) string { return p.ID })
			project.ID = domain.NextProjectID(ids, now.Local())
		}
		if project.CreatedDate.IsZero() {
			project.CreatedDate = now
		}
		if project.Status == "" {
			project.Status = domain.ProjectStatusQuoting
		}
		var err error
		created, err = tx.CreateProject(project)
		return err
	})
	return created, res, err
}

// UpdateProject shallow-merges partial onto the stored project. The id and a
// set createdDate are immutable.
func (s *Service) UpdateProject(ctx context.Context, id string, partial map[string]any) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "update_project", func() string { return id }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProject(id, func(p *Project) error {
			if err := domain.MergePartial(p, partial); err != nil {
				return err
			}
			if !p.Status.Valid() {
				return &domain.ValidationError{Field: "status", Message: domain.MsgInvalidValue}
			}
			return nil
		})
		return err
	})
	return updated, res, err
}

// ReplaceProject overwrites the editable fields of a stored project while
// keeping its status, progress and creation date.
func (s *Service) ReplaceProject(ctx context.Context, project Project) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "replace_project", func() string { return project.ID }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProject(project.ID, func(p *Project) error {
			status, progress, created := p.Status, p.Progress, p.CreatedDate
			*p = project
			p.Status, p.Progress, p.CreatedDate = status, progress, created
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteProject removes a project and its sampling data.
func (s *Service) DeleteProject(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_project", func() string { return id }, func(tx Transaction) error {
		return tx.DeleteProject(id)
	})
}

// UpdateClientProjectCount recomputes and stores the derived count. Calling it
// repeatedly without project changes is a no-op.
func (s *Service) UpdateClientProjectCount(ctx context.Context, clientID string) (Client, Result, error) {
	var updated Client
	res, err := s.run(ctx, "recount_client", func() string { return clientID }, func(tx Transaction) error {
		var err error
		updated, err = tx.RecountClient(clientID)
		return err
	})
	return updated, res, err
}

// ValidationReport summarizes integrity problems found in stored data.
type ValidationReport struct {
	IsValid        bool      `json:"isValid"`
	OrphanProjects []Project `json:"orphanProjects"`
	StaleCounts    []string  `json:"staleCounts,omitempty"`
}

// ValidateData audits stored data for projects without a client and clients
// whose stored project count drifted, as can happen with imported stores.
func (s *Service) ValidateData(ctx context.Context) (ValidationReport, error) {
	report := ValidationReport{OrphanProjects: []Project{}}
	err := s.view(ctx, "validate_data", func(v TransactionView) error {
		counts := make(map[string]int)
		for _, p := range v.ListProjects() {
			counts[p.ClientID]++
			if _, ok := v.FindClient(p.ClientID); !ok {
				report.OrphanProjects = append(report.OrphanProjects, p)
			}
		}
		for _, c := range v.ListClients() {
			if c.ProjectCount != counts[c.ID] {
				report.StaleCounts = append(report.StaleCounts, c.ID)
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	if len(report.OrphanProjects) > 0 {
		s.logger.Warn("orphan projects found", "count", len(report.OrphanProjects))
	}
	report.IsValid = len(report.OrphanProjects) == 0
	return report, nil
}
