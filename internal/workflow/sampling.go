package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"envmon/internal/core"
	"envmon/internal/export"
	"envmon/pkg/domain"
)

// DefaultOperator is recorded on calibrations when none is configured.
const DefaultOperator = "系統用戶"

// ErrNoPoints is returned for projects without sampling points.
var ErrNoPoints = errors.New("專案沒有設定監測點位")

// SamplingSession drives field data capture for one project, one point at a
// time. A session is not safe for concurrent use.
type SamplingSession struct {
	svc      *core.Service
	project  domain.Project
	index    int
	operator string
}

// SessionOption configures a SamplingSession.
type SessionOption func(*SamplingSession)

// WithOperator names the person recorded on calibrations.
func WithOperator(name string) SessionOption {
	return func(s *SamplingSession) {
		if strings.TrimSpace(name) != "" {
			s.operator = name
		}
	}
}

// OpenSamplingSession loads projectID and selects its first point.
func OpenSamplingSession(ctx context.Context, svc *core.Service, projectID string, opts ...SessionOption) (*SamplingSession, error) {
	project, err := svc.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(project.SamplingPoints) == 0 {
		return nil, ErrNoPoints
	}
	s := &SamplingSession{svc: svc, project: project, operator: DefaultOperator}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SamplingSession) Project() domain.Project { return s.project }

// Current returns the selected point and its position.
func (s *SamplingSession) Current() (domain.SamplingPoint, int) {
	return s.project.SamplingPoints[s.index], s.index
}

// SelectPoint makes pointID current.
func (s *SamplingSession) SelectPoint(pointID string) error {
	_, idx, ok := s.project.Point(pointID)
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntitySamplingRecord, ID: s.project.ID + "/" + pointID}
	}
	s.index = idx
	return nil
}

// Next selects the following point. At the last point it stays put and
// returns an info notice.
func (s *SamplingSession) Next() (domain.SamplingPoint, bool, Notice) {
	if s.index+1 >= len(s.project.SamplingPoints) {
		return s.project.SamplingPoints[s.index], false, info("已是最後一個點位")
	}
	s.index++
	return s.project.SamplingPoints[s.index], true, Notice{}
}

// Prev selects the preceding point. At the first point it stays put and
// returns an info notice.
func (s *SamplingSession) Prev() (domain.SamplingPoint, bool, Notice) {
	if s.index == 0 {
		return s.project.SamplingPoints[0], false, info("已是第一個點位")
	}
	s.index--
	return s.project.SamplingPoints[s.index], true, Notice{}
}

// ItemField is one measurement row of the point form.
type ItemField struct {
	Item string `json:"item"`
	domain.ItemMeasurement
}

// PointForm is the dynamic data-entry form of the current point.
type PointForm struct {
	Title       string                     `json:"title"`
	PointID     string                     `json:"pointId"`
	Environment domain.EnvironmentReadings `json:"environment"`
	Items       []ItemField                `json:"items"`
	UnitOptions []string                   `json:"unitOptions"`
	Saved       bool                       `json:"saved"`
}

// Form builds the form of the current point, prefilled from a saved record.
// The sampling date defaults to today.
func (s *SamplingSession) Form(ctx context.Context) (PointForm, error) {
	pt, _ := s.Current()
	rec, found, err := s.svc.SamplingRecord(ctx, s.project.ID, pt.ID)
	if err != nil {
		return PointForm{}, err
	}
	form := PointForm{
		Title:       pt.Name + " - 採樣記錄",
		PointID:     pt.ID,
		UnitOptions: append([]string(nil), domain.UnitOptions...),
		Saved:       found,
	}
	if found {
		form.Environment = rec.Data.Environment
	}
	if form.Environment.SamplingDate == "" {
		form.Environment.SamplingDate = s.svc.Now().UTC().Format(domain.DateLayout)
	}
	for _, item := range pt.Items {
		form.Items = append(form.Items, ItemField{Item: item, ItemMeasurement: rec.Data.Items[item]})
	}
	return form, nil
}

func (s *SamplingSession) validate(pt domain.SamplingPoint, data domain.SamplingData) error {
	for item, m := range data.Items {
		if !lo.Contains(pt.Items, item) {
			return &ValidationError{Field: item, Message: domain.MsgInvalidValue}
		}
		if strings.TrimSpace(m.Value) != "" {
			if _, ok := m.Numeric(); !ok {
				return &ValidationError{Field: item, Message: domain.MsgInvalidValue}
			}
		}
		if m.Unit != "" && !lo.Contains(domain.UnitOptions, m.Unit) {
			return &ValidationError{Field: item, Message: domain.MsgInvalidValue}
		}
	}
	return nil
}

// Save upserts the record of the current point and marks it completed. Every
// item of the point is present in the stored record.
func (s *SamplingSession) Save(ctx context.Context, data domain.SamplingData) (domain.SamplingRecord, Notice, error) {
	pt, _ := s.Current()
	if err := s.validate(pt, data); err != nil {
		return fail(domain.SamplingRecord{}, err, "")
	}
	items := make(map[string]domain.ItemMeasurement, len(pt.Items))
	for _, item := range pt.Items {
		items[item] = data.Items[item]
	}
	data.Items = items
	rec, _, _, err := s.svc.SaveSamplingRecord(ctx, domain.SamplingRecord{
		ProjectID: s.project.ID,
		PointID:   pt.ID,
		PointName: pt.Name,
		Data:      data,
		Status:    domain.RecordStatusCompleted,
	})
	if err != nil {
		return fail(domain.SamplingRecord{}, err, "採樣資料儲存失敗")
	}
	return rec, success("採樣資料儲存成功！"), nil
}

// Statuses returns the completion state of every point.
func (s *SamplingSession) Statuses(ctx context.Context) (map[string]domain.RecordStatus, error) {
	return s.svc.SamplingStatus(ctx, s.project.ID)
}

// Review flattens saved data for the review table.
func (s *SamplingSession) Review(ctx context.Context) ([]export.ReviewRow, error) {
	records, err := s.svc.SamplingRecords(ctx, s.project.ID)
	if err != nil {
		return nil, err
	}
	return export.ReviewRows(s.project.SamplingPoints, records), nil
}

// SuggestInstrumentID returns a provisional id for an ad-hoc instrument.
func (s *SamplingSession) SuggestInstrumentID(kind string) string {
	return fmt.Sprintf("%s_%d", kind, s.svc.Now().UnixMilli())
}

// Calibrate records an instrument calibration against the project. A missing
// factor is derived as standard / after when both are known.
func (s *SamplingSession) Calibrate(ctx context.Context, form CalibrationForm) (domain.CalibrationRecord, Notice, error) {
	if err := domain.Validate(form); err != nil {
		return fail(domain.CalibrationRecord{}, err, "")
	}
	factor := form.CalibrationFactor
	if factor == "" {
		factor = deriveFactor(form.StandardConcentration, form.AfterCalibration)
	}
	rec, _, err := s.svc.AddCalibrationRecord(ctx, domain.CalibrationRecord{
		InstrumentID:          strings.TrimSpace(form.InstrumentID),
		BeforeCalibration:     form.BeforeCalibration,
		StandardConcentration: form.StandardConcentration,
		AfterCalibration:      form.AfterCalibration,
		CalibrationFactor:     factor,
		Notes:                 form.Notes,
		ProjectID:             s.project.ID,
		Operator:              s.operator,
	})
	if err != nil {
		return fail(domain.CalibrationRecord{}, err, "儀器校正記錄儲存失敗")
	}
	return rec, success("儀器校正記錄已儲存"), nil
}

func deriveFactor(standard, after string) string {
	std, err := decimal.NewFromString(standard)
	if err != nil {
		return ""
	}
	aft, err := decimal.NewFromString(after)
	if err != nil || aft.IsZero() {
		return ""
	}
	return std.DivRound(aft, 4).String()
}

// RecordQCSample stores the QC samples taken at the current point.
func (s *SamplingSession) RecordQCSample(ctx context.Context, form QCSampleForm) (domain.QCSampleRecord, Notice, error) {
	pt, _ := s.Current()
	rec, _, err := s.svc.AddQCSampleRecord(ctx, domain.QCSampleRecord{
		ProjectID:       s.project.ID,
		PointID:         pt.ID,
		BlankSample:     domain.QCSample{SampleID: form.BlankSampleID, Description: form.BlankDescription},
		DuplicateSample: domain.DuplicateSample{OriginalSampleID: form.DuplicateOriginalID, Description: form.DuplicateDescription},
		SpikedSample:    domain.QCSample{SampleID: form.SpikedSampleID, Description: form.SpikedDescription},
	})
	if err != nil {
		return fail(domain.QCSampleRecord{}, err, "品管樣本記錄儲存失敗")
	}
	return rec, success("品管樣本記錄已儲存"), nil
}

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Export renders the project's sampling data as JSON.
func (s *SamplingSession) Export(ctx context.Context) (File, Notice, error) {
	records, err := s.svc.SamplingRecords(ctx, s.project.ID)
	if err != nil {
		return fail(File{}, err, "")
	}
	now := s.svc.Now()
	data, err := export.NewSamplingBundle(s.project, records, now).JSON()
	if err != nil {
		return fail(File{}, err, "")
	}
	return File{
		Name:        export.SamplingFileName(s.project.ID, now),
		ContentType: "application/json",
		Data:        data,
	}, success("採樣資料已匯出"), nil
}

// ExportWorkbook renders the review table as an xlsx workbook.
func (s *SamplingSession) ExportWorkbook(ctx context.Context) (File, Notice, error) {
	rows, err := s.Review(ctx)
	if err != nil {
		return fail(File{}, err, "")
	}
	data, err := export.Workbook(export.SamplingTable(rows))
	if err != nil {
		return fail(File{}, err, "")
	}
	now := s.svc.Now()
	name := strings.TrimSuffix(export.SamplingFileName(s.project.ID, now), ".json") + ".xlsx"
	return File{Name: name, ContentType: export.ContentTypeXLSX, Data: data}, success("採樣資料已匯出"), nil
}
