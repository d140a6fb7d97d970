package core

import (
	"context"
	"strings"

	"envmon/pkg/domain"

	"github.com/samber/lo"
)

// ListChemicals returns the chemical reference entries.
func (s *Service) ListChemicals(ctx context.Context) ([]Chemical, error) {
	var out []Chemical
	err := s.view(ctx, "list_chemicals", func(v TransactionView) error {
		out = v.ListChemicals()
		return nil
	})
	return out, err
}

// SearchChemicals filters chemicals by name, CAS number or formula.
func (s *Service) SearchChemicals(ctx context.Context, term string) ([]Chemical, error) {
	chemicals, err := s.ListChemicals(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return chemicals, nil
	}
	return lo.Filter(chemicals, func(c Chemical, _ int) bool {
		return containsFold(needle, c.Name, c.CASNumber, c.MolecularFormula, c.TWA, c.SamplingMethod)
	}), nil
}

// AddChemical stores a chemical. Duplicate CAS numbers are rejected by rules.
func (s *Service) AddChemical(ctx context.Context, chemical Chemical) (Chemical, Result, error) {
	var created Chemical
	res, err := s.run(ctx, "add_chemical", func() string { return chemical.CASNumber }, func(tx Transaction) error {
		if chemical.CreatedDate.IsZero() {
			chemical.CreatedDate = s.clock.Now()
		}
		var err error
		created, err = tx.CreateChemical(chemical)
		return err
	})
	return created, res, err
}

// DeleteChemical removes the chemical with casNumber.
func (s *Service) DeleteChemical(ctx context.Context, casNumber string) (Result, error) {
	return s.run(ctx, "delete_chemical", func() string { return casNumber }, func(tx Transaction) error {
		return tx.DeleteChemical(casNumber)
	})
}

// ListInstruments returns all instruments.
func (s *Service) ListInstruments(ctx context.Context) ([]Instrument, error) {
	var out []Instrument
	err := s.view(ctx, "list_instruments", func(v TransactionView) error {
		out = v.ListInstruments()
		return nil
	})
	return out, err
}

// GetInstrument returns the instrument with id.
func (s *Service) GetInstrument(ctx context.Context, id string) (Instrument, error) {
	var out Instrument
	err := s.view(ctx, "get_instrument", func(v TransactionView) error {
		in, ok := v.FindInstrument(id)
		if !ok {
			return errNotFound(domain.EntityInstrument, id)
		}
		out = in
		return nil
	})
	return out, err
}

// AddInstrument stores an instrument, deriving the next calibration date when
// the purchase date and interval are known.
func (s *Service) AddInstrument(ctx context.Context, instrument Instrument) (Instrument, Result, error) {
	var created Instrument
	res, err := s.run(ctx, "add_instrument", func() string { return instrument.ID }, func(tx Transaction) error {
		if instrument.CreatedDate.IsZero() {
			instrument.CreatedDate = s.clock.Now()
		}
		if instrument.Status == "" {
			instrument.Status = domain.InstrumentAvailable
		}
		if instrument.NextCalibration == "" && instrument.PurchaseDate != "" && instrument.CalibrationInterval > 0 {
			next, err := domain.NextCalibrationDate(instrument.PurchaseDate, instrument.CalibrationInterval)
			if err != nil {
				return &domain.ValidationError{Field: "purchaseDate", Message: domain.MsgInvalidValue}
			}
			instrument.NextCalibration = next
		}
		var err error
		created, err = tx.CreateInstrument(instrument)
		return err
	})
	return created, res, err
}

// MonitoringItems returns the monitoring-type vocabulary.
func (s *Service) MonitoringItems(ctx context.Context) (MonitoringCatalog, error) {
	var out MonitoringCatalog
	err := s.view(ctx, "monitoring_items", func(v TransactionView) error {
		out = v.MonitoringCatalog()
		return nil
	})
	return out, err
}

// MonitoringItemsFor returns the items of one monitoring type.
func (s *Service) MonitoringItemsFor(ctx context.Context, monitoringType string) ([]string, error) {
	catalog, err := s.MonitoringItems(ctx)
	if err != nil {
		return nil, err
	}
	return catalog[monitoringType], nil
}

// SystemSettings returns the global settings.
func (s *Service) SystemSettings(ctx context.Context) (SystemSettings, error) {
	var out SystemSettings
	err := s.view(ctx, "system_settings", func(v TransactionView) error {
		out = v.SystemSettings()
		return nil
	})
	return out, err
}
