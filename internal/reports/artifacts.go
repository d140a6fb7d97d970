package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"envmon/internal/core"
	"envmon/internal/docgen"
	"envmon/internal/export"
	"envmon/pkg/domain"
)

// dataset is everything a report may draw from.
type dataset struct {
	projects     []domain.Project
	clients      []domain.Client
	sampling     []domain.SamplingRecord
	calibrations []domain.CalibrationRecord
	qc           []domain.QCSampleRecord
}

func (d dataset) clientIndex() map[string]domain.Client {
	return lo.KeyBy(d.clients, func(c domain.Client) string { return c.ID })
}

// collect loads the data of projectID, or of every project when it is empty.
func collect(ctx context.Context, svc *core.Service, projectID string) (dataset, error) {
	var d dataset
	if projectID != "" {
		p, err := svc.GetProject(ctx, projectID)
		if err != nil {
			return dataset{}, err
		}
		d.projects = []domain.Project{p}
	} else {
		all, err := svc.ListProjects(ctx)
		if err != nil {
			return dataset{}, err
		}
		d.projects = all
	}

	clientIDs := lo.Uniq(lo.Map(d.projects, func(p domain.Project, _ int) string { return p.ClientID }))
	for _, id := range clientIDs {
		c, err := svc.GetClient(ctx, id)
		if err != nil {
			return dataset{}, err
		}
		d.clients = append(d.clients, c)
	}
	for _, p := range d.projects {
		records, err := svc.SamplingRecords(ctx, p.ID)
		if err != nil {
			return dataset{}, err
		}
		d.sampling = append(d.sampling, records...)
	}
	var err error
	if d.calibrations, err = svc.CalibrationRecords(ctx, projectID); err != nil {
		return dataset{}, err
	}
	if d.qc, err = svc.QCSampleRecords(ctx, projectID); err != nil {
		return dataset{}, err
	}
	return d, nil
}

func (d dataset) samplingTable() export.Table {
	var rows []export.ReviewRow
	for _, p := range d.projects {
		own := lo.Filter(d.sampling, func(r domain.SamplingRecord, _ int) bool { return r.ProjectID == p.ID })
		rows = append(rows, export.ReviewRows(p.SamplingPoints, own)...)
	}
	return export.SamplingTable(rows)
}

func (d dataset) table(f Field) export.Table {
	switch f {
	case FieldClientInfo:
		return export.ClientTable(d.clients)
	case FieldSamplingData:
		return d.samplingTable()
	case FieldCalibration:
		return export.CalibrationTable(d.calibrations)
	case FieldQCSamples:
		return export.QCTable(d.qc)
	default:
		return export.ProjectTable(d.projects, d.clientIndex())
	}
}

func (d dataset) section(f Field) any {
	switch f {
	case FieldClientInfo:
		return d.clients
	case FieldSamplingData:
		return d.sampling
	case FieldCalibration:
		return d.calibrations
	case FieldQCSamples:
		return d.qc
	default:
		return d.projects
	}
}

// quickTables selects the sheets of a standard report.
func quickTables(d dataset, rt domain.ReportType) []export.Table {
	tables := []export.Table{d.table(FieldProjectInfo), d.table(FieldSamplingData)}
	switch rt {
	case domain.ReportCalibration:
		tables = append(tables, d.table(FieldCalibration), d.table(FieldQCSamples))
	case domain.ReportCompliance, domain.ReportAnalysis:
		tables = append(tables, export.StandardsTable(export.DefaultStandards()))
	}
	return tables
}

// renderQuick builds the artifact of a standard report.
func renderQuick(ctx context.Context, svc *core.Service, docs *docgen.Generator, job Job, now time.Time) ([]byte, error) {
	if job.Format == FormatWord {
		if docs == nil {
			return nil, fmt.Errorf("document generator not configured")
		}
		docType := domain.DocReport
		if job.ReportType == domain.ReportPlanDocument {
			docType = domain.DocPlan
		}
		doc, err := docs.Render(ctx, job.ProjectID, docType)
		if err != nil {
			return nil, err
		}
		return doc.Data, nil
	}
	d, err := collect(ctx, svc, job.ProjectID)
	if err != nil {
		return nil, err
	}
	if job.Format == FormatJSON {
		return export.NewSamplingBundle(d.projects[0], d.sampling, now).JSON()
	}
	return export.Workbook(quickTables(d, job.ReportType)...)
}

type customDocument struct {
	Name        string         `json:"name"`
	ProjectID   string         `json:"projectId,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Sections    map[string]any `json:"sections"`
}

// renderCustom builds one sheet or JSON section per selected field.
func renderCustom(ctx context.Context, svc *core.Service, job Job, now time.Time) ([]byte, error) {
	d, err := collect(ctx, svc, job.ProjectID)
	if err != nil {
		return nil, err
	}
	if job.Format == FormatJSON {
		doc := customDocument{Name: job.Name, ProjectID: job.ProjectID, GeneratedAt: now.UTC(), Sections: map[string]any{}}
		for _, f := range job.Fields {
			doc.Sections[string(f)] = d.section(f)
		}
		return json.MarshalIndent(doc, "", "  ")
	}
	return export.Workbook(lo.Map(job.Fields, func(f Field, _ int) export.Table { return d.table(f) })...)
}
