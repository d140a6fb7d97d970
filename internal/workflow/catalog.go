package workflow

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/samber/lo"

	"envmon/internal/blob"
	"envmon/internal/core"
	"envmon/internal/export"
	"envmon/pkg/domain"
)

// MsgDocxOnly rejects template uploads that are not Word documents.
const MsgDocxOnly = "只支援 .docx 格式的檔案"

// ContentTypeDocx is the MIME type of Word templates and documents.
const ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Catalog backs the database administration screens: chemicals, instruments,
// regulatory standards and document templates.
type Catalog struct {
	svc   *core.Service
	blobs blob.Store
}

// NewCatalog returns a controller. blobs holds uploaded templates.
func NewCatalog(svc *core.Service, blobs blob.Store) *Catalog {
	return &Catalog{svc: svc, blobs: blobs}
}

// SaveChemical validates and stores a chemical. CAS numbers are unique.
func (c *Catalog) SaveChemical(ctx context.Context, form ChemicalForm) (domain.Chemical, Notice, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.CASNumber = strings.TrimSpace(form.CASNumber)
	if err := domain.Validate(form); err != nil {
		return fail(domain.Chemical{}, err, "")
	}
	chem, _, err := c.svc.AddChemical(ctx, domain.Chemical{
		Name:               form.Name,
		CASNumber:          form.CASNumber,
		MolecularFormula:   strings.TrimSpace(form.MolecularFormula),
		TWA:                form.TWA,
		STEL:               form.STEL,
		Ceiling:            form.Ceiling,
		SamplingMethod:     strings.TrimSpace(form.SamplingMethod),
		PhysicalProperties: form.PhysicalProperties,
		HealthHazards:      form.HealthHazards,
	})
	if err != nil {
		return fail(domain.Chemical{}, err, "化學品新增失敗")
	}
	return chem, success("化學品新增成功！"), nil
}

// DeleteChemical removes the chemical with casNumber.
func (c *Catalog) DeleteChemical(ctx context.Context, casNumber string) (Notice, error) {
	if _, err := c.svc.DeleteChemical(ctx, casNumber); err != nil {
		return ErrorNotice(err, "化學品刪除失敗"), err
	}
	return success("化學品已刪除"), nil
}

func (c *Catalog) SearchChemicals(ctx context.Context, term string) ([]domain.Chemical, error) {
	return c.svc.SearchChemicals(ctx, term)
}

// SaveInstrument validates and stores an instrument; the next calibration
// date is derived from the purchase date.
func (c *Catalog) SaveInstrument(ctx context.Context, form InstrumentForm) (domain.Instrument, Notice, error) {
	form.ID = strings.TrimSpace(form.ID)
	if err := domain.Validate(form); err != nil {
		return fail(domain.Instrument{}, err, "")
	}
	next, err := domain.NextCalibrationDate(form.PurchaseDate, form.CalibrationInterval)
	if err != nil {
		return fail(domain.Instrument{}, &ValidationError{Field: "purchaseDate", Message: domain.MsgInvalidValue}, "")
	}
	inst, _, err := c.svc.AddInstrument(ctx, domain.Instrument{
		ID:                  form.ID,
		Model:               strings.TrimSpace(form.Model),
		Manufacturer:        strings.TrimSpace(form.Manufacturer),
		SerialNumber:        form.SerialNumber,
		PurchaseDate:        form.PurchaseDate,
		ApplicableItems:     lo.Uniq(form.ApplicableItems),
		CalibrationInterval: form.CalibrationInterval,
		Status:              form.Status,
		Notes:               form.Notes,
		NextCalibration:     next,
	})
	if err != nil {
		return fail(domain.Instrument{}, err, "儀器新增失敗")
	}
	return inst, success("儀器新增成功！"), nil
}

// InstrumentDetail is the instrument detail view.
type InstrumentDetail struct {
	Instrument   domain.Instrument          `json:"instrument"`
	Calibrations []domain.CalibrationRecord `json:"calibrations"`
}

// InstrumentDetail loads an instrument and the field calibrations recorded
// against it.
func (c *Catalog) InstrumentDetail(ctx context.Context, id string) (InstrumentDetail, error) {
	inst, err := c.svc.GetInstrument(ctx, id)
	if err != nil {
		return InstrumentDetail{}, err
	}
	if inst.NextCalibration == "" && inst.PurchaseDate != "" {
		if next, err := domain.NextCalibrationDate(inst.PurchaseDate, inst.CalibrationInterval); err == nil {
			inst.NextCalibration = next
		}
	}
	records, err := c.svc.CalibrationRecords(ctx, "")
	if err != nil {
		return InstrumentDetail{}, err
	}
	calibrations := lo.Filter(records, func(r domain.CalibrationRecord, _ int) bool { return r.InstrumentID == id })
	return InstrumentDetail{Instrument: inst, Calibrations: calibrations}, nil
}

// ExportStandards renders the regulatory standards CSV.
func (c *Catalog) ExportStandards() (File, Notice) {
	return File{
		Name:        export.StandardsFileName,
		ContentType: "text/csv;charset=utf-8",
		Data:        []byte(export.StandardsCSV(export.DefaultStandards())),
	}, success("法規標準匯出完成")
}

// UploadTemplate stores a Word template under templates/. Only .docx files
// that open as zip archives are accepted; an existing template of the same
// name is replaced.
func (c *Catalog) UploadTemplate(ctx context.Context, filename string, r io.Reader) (blob.Info, Notice, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if !strings.EqualFold(path.Ext(name), ".docx") {
		return fail(blob.Info{}, &ValidationError{Field: "template", Message: MsgDocxOnly}, "")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fail(blob.Info{}, err, "模板上傳失敗")
	}
	if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return fail(blob.Info{}, &ValidationError{Field: "template", Message: MsgDocxOnly}, "")
	}
	info, err := blob.WriteBytes(ctx, c.blobs, blob.PrefixTemplates+name, data, blob.PutOptions{
		ContentType: ContentTypeDocx,
		Metadata:    map[string]string{"original-name": name},
	})
	if err != nil {
		return fail(blob.Info{}, err, "模板上傳失敗")
	}
	return info, success("模板上傳成功！"), nil
}

// ListTemplates lists the uploaded Word templates.
func (c *Catalog) ListTemplates(ctx context.Context) ([]blob.Info, error) {
	infos, err := c.blobs.List(ctx, blob.PrefixTemplates)
	if err != nil {
		return nil, err
	}
	return lo.Filter(infos, func(i blob.Info, _ int) bool {
		return strings.EqualFold(path.Ext(i.Key), ".docx")
	}), nil
}
