// Package export renders monitoring data into downloadable artifacts: the
// sampling JSON bundle, excel workbooks and the regulatory standards CSV.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"envmon/pkg/domain"
)

// SamplingBundle is the JSON document produced by a sampling export.
type SamplingBundle struct {
	ProjectID    string                         `json:"projectId"`
	ProjectName  string                         `json:"projectName"`
	ExportDate   time.Time                      `json:"exportDate"`
	SamplingData map[string]domain.SamplingData `json:"samplingData"`
}

// NewSamplingBundle keys the records of project by point id.
func NewSamplingBundle(project domain.Project, records []domain.SamplingRecord, now time.Time) SamplingBundle {
	data := make(map[string]domain.SamplingData, len(records))
	for _, r := range records {
		if r.ProjectID == project.ID {
			data[r.PointID] = r.Data
		}
	}
	return SamplingBundle{
		ProjectID:    project.ID,
		ProjectName:  project.ProjectName,
		ExportDate:   now.UTC(),
		SamplingData: data,
	}
}

// JSON renders the bundle indented by two spaces.
func (b SamplingBundle) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// SamplingFileName returns sampling_data_{projectId}_{YYYY-MM-DD}.json using
// the UTC calendar date.
func SamplingFileName(projectID string, now time.Time) string {
	return fmt.Sprintf("sampling_data_%s_%s.json", projectID, now.UTC().Format(domain.DateLayout))
}

// ReviewRow is one measured item of one point.
type ReviewRow struct {
	PointName    string `json:"pointName"`
	Item         string `json:"item"`
	Value        string `json:"value"`
	Unit         string `json:"unit"`
	Note         string `json:"note"`
	SamplingDate string `json:"samplingDate"`
}

// Placeholder stands in for empty cells.
const Placeholder = "-"

func orDash(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// ReviewRows flattens records in point order. Points without a record are
// skipped; every item of a recorded point yields a row.
func ReviewRows(points []domain.SamplingPoint, records []domain.SamplingRecord) []ReviewRow {
	byPoint := make(map[string]domain.SamplingRecord, len(records))
	for _, r := range records {
		byPoint[r.PointID] = r
	}
	var rows []ReviewRow
	for _, pt := range points {
		rec, ok := byPoint[pt.ID]
		if !ok {
			continue
		}
		for _, item := range pt.Items {
			m := rec.Data.Items[item]
			rows = append(rows, ReviewRow{
				PointName:    pt.Name,
				Item:         item,
				Value:        orDash(m.Value),
				Unit:         orDash(m.Unit),
				Note:         orDash(m.Note),
				SamplingDate: orDash(rec.Data.Environment.SamplingDate),
			})
		}
	}
	return rows
}
