package core

import (
	"context"

	"envmon/pkg/domain"

	"github.com/samber/lo"
)

// SaveSamplingRecord upserts the record for (projectId, pointId), stamps it
// completed and marks the point done. created reports whether a new record
// was appended.
func (s *Service) SaveSamplingRecord(ctx context.Context, record SamplingRecord) (SamplingRecord, bool, Result, error) {
	var (
		saved   SamplingRecord
		created bool
	)
	res, err := s.run(ctx, "save_sampling_record", func() string { return record.ProjectID + "/" + record.PointID }, func(tx Transaction) error {
		if record.Timestamp.IsZero() {
			record.Timestamp = s.clock.Now()
		}
		if record.Status == "" {
			record.Status = domain.RecordStatusCompleted
		}
		if record.PointName == "" {
			if p, ok := tx.Snapshot().FindProject(record.ProjectID); ok {
				if pt, _, ok := p.Point(record.PointID); ok {
					record.PointName = pt.Name
				}
			}
		}
		var err error
		saved, created, err = tx.UpsertSamplingRecord(record)
		if err != nil {
			return err
		}
		tx.SetSamplingStatus(record.ProjectID, record.PointID, saved.Status)
		return nil
	})
	return saved, created, res, err
}

// SamplingRecords lists the records of a project.
func (s *Service) SamplingRecords(ctx context.Context, projectID string) ([]SamplingRecord, error) {
	var out []SamplingRecord
	err := s.view(ctx, "list_sampling_records", func(v TransactionView) error {
		out = lo.Filter(v.ListSamplingRecords(), func(r SamplingRecord, _ int) bool { return r.ProjectID == projectID })
		return nil
	})
	return out, err
}

// SamplingRecord returns the record of one point.
func (s *Service) SamplingRecord(ctx context.Context, projectID, pointID string) (SamplingRecord, bool, error) {
	var (
		out   SamplingRecord
		found bool
	)
	err := s.view(ctx, "get_sampling_record", func(v TransactionView) error {
		out, found = v.FindSamplingRecord(projectID, pointID)
		return nil
	})
	return out, found, err
}

// SamplingStatus returns the status of every point of a project. Points
// without a saved record are pending.
func (s *Service) SamplingStatus(ctx context.Context, projectID string) (map[string]domain.RecordStatus, error) {
	out := make(map[string]domain.RecordStatus)
	err := s.view(ctx, "sampling_status", func(v TransactionView) error {
		project, ok := v.FindProject(projectID)
		if !ok {
			return errNotFound(domain.EntityProject, projectID)
		}
		stored := v.SamplingStatus()[projectID]
		for _, pt := range project.SamplingPoints {
			status, ok := stored[pt.ID]
			if !ok {
				status = domain.RecordStatusPending
				if _, has := v.FindSamplingRecord(projectID, pt.ID); has {
					status = domain.RecordStatusCompleted
				}
			}
			out[pt.ID] = status
		}
		return nil
	})
	return out, err
}

// AddCalibrationRecord appends an on-site calibration.
func (s *Service) AddCalibrationRecord(ctx context.Context, record CalibrationRecord) (CalibrationRecord, Result, error) {
	var saved CalibrationRecord
	res, err := s.run(ctx, "add_calibration_record", func() string { return saved.ID }, func(tx Transaction) error {
		if record.Timestamp.IsZero() {
			record.Timestamp = s.clock.Now()
		}
		var err error
		saved, err = tx.AppendCalibrationRecord(record)
		return err
	})
	return saved, res, err
}

// CalibrationRecords lists calibrations, optionally for one project.
func (s *Service) CalibrationRecords(ctx context.Context, projectID string) ([]CalibrationRecord, error) {
	var out []CalibrationRecord
	err := s.view(ctx, "list_calibration_records", func(v TransactionView) error {
		out = lo.Filter(v.ListCalibrationRecords(), func(r CalibrationRecord, _ int) bool {
			return projectID == "" || r.ProjectID == projectID
		})
		return nil
	})
	return out, err
}

// AddQCSampleRecord appends a QC sample record.
func (s *Service) AddQCSampleRecord(ctx context.Context, record QCSampleRecord) (QCSampleRecord, Result, error) {
	var saved QCSampleRecord
	res, err := s.run(ctx, "add_qc_sample_record", func() string { return saved.ID }, func(tx Transaction) error {
		if record.Timestamp.IsZero() {
			record.Timestamp = s.clock.Now()
		}
		var err error
		saved, err = tx.AppendQCSampleRecord(record)
		return err
	})
	return saved, res, err
}

// QCSampleRecords lists QC records, optionally for one project.
func (s *Service) QCSampleRecords(ctx context.Context, projectID string) ([]QCSampleRecord, error) {
	var out []QCSampleRecord
	err := s.view(ctx, "list_qc_sample_records", func(v TransactionView) error {
		out = lo.Filter(v.ListQCSampleRecords(), func(r QCSampleRecord, _ int) bool {
			return projectID == "" || r.ProjectID == projectID
		})
		return nil
	})
	return out, err
}
