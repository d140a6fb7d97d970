package workflow

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envmon/internal/blob"
	"envmon/pkg/domain"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(newSeededService(t), blob.NewMemory())
}

func docxBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:document/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func toluene() ChemicalForm {
	return ChemicalForm{
		Name:             "甲苯",
		CASNumber:        " 108-88-3 ",
		MolecularFormula: "C7H8",
		TWA:              "100 ppm",
		SamplingMethod:   "活性碳管",
	}
}

func TestCatalogChemicals(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t)

	chem, notice, err := c.SaveChemical(ctx, toluene())
	require.NoError(t, err)
	assert.Equal(t, "化學品新增成功！", notice.Message)
	assert.Equal(t, "108-88-3", chem.CASNumber)
	assert.Equal(t, testNow, chem.CreatedDate)

	_, notice, err = c.SaveChemical(ctx, toluene())
	require.Error(t, err)
	assert.Equal(t, MsgDuplicateEntry, notice.Message)

	bad := toluene()
	bad.CASNumber = "10888-3"
	_, notice, err = c.SaveChemical(ctx, bad)
	require.True(t, domain.IsValidationError(err))
	assert.Equal(t, domain.MsgCASFormat, notice.Message)

	found, err := c.SearchChemicals(ctx, "活性碳")
	require.NoError(t, err)
	require.Len(t, found, 1)

	notice, err = c.DeleteChemical(ctx, "108-88-3")
	require.NoError(t, err)
	assert.Equal(t, "化學品已刪除", notice.Message)
	notice, err = c.DeleteChemical(ctx, "108-88-3")
	require.Error(t, err)
	assert.Equal(t, "找不到化學品資料", notice.Message)
}

func TestCatalogInstruments(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	c := NewCatalog(svc, blob.NewMemory())

	inst, notice, err := c.SaveInstrument(ctx, InstrumentForm{
		ID:                  "INS-CO-01",
		Model:               "TSI 7545",
		Manufacturer:        "TSI",
		PurchaseDate:        "2024-11-30",
		ApplicableItems:     []string{"一氧化碳(CO)", "二氧化碳(CO2)", "一氧化碳(CO)"},
		CalibrationInterval: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "儀器新增成功！", notice.Message)
	assert.Equal(t, "2025-05-30", inst.NextCalibration)
	assert.Equal(t, []string{"一氧化碳(CO)", "二氧化碳(CO2)"}, inst.ApplicableItems)
	assert.Equal(t, domain.InstrumentAvailable, inst.Status)

	_, notice, err = c.SaveInstrument(ctx, InstrumentForm{ID: "INS-CO-01", Model: "x", Manufacturer: "y", PurchaseDate: "2024-01-01", CalibrationInterval: 12})
	require.Error(t, err)
	assert.Equal(t, MsgDuplicateEntry, notice.Message)

	_, _, err = c.SaveInstrument(ctx, InstrumentForm{ID: "INS-2", Model: "x", Manufacturer: "y", PurchaseDate: "2024/01/01", CalibrationInterval: 12})
	assert.True(t, domain.IsValidationError(err))

	session, err := OpenSamplingSession(ctx, svc, "YOC114-001")
	require.NoError(t, err)
	_, _, err = session.Calibrate(ctx, CalibrationForm{InstrumentID: "INS-CO-01", StandardConcentration: "50", AfterCalibration: "50"})
	require.NoError(t, err)
	_, _, err = session.Calibrate(ctx, CalibrationForm{InstrumentID: "INS-OTHER"})
	require.NoError(t, err)

	detail, err := c.InstrumentDetail(ctx, "INS-CO-01")
	require.NoError(t, err)
	require.Len(t, detail.Calibrations, 1)
	assert.Equal(t, "1", detail.Calibrations[0].CalibrationFactor)

	_, err = c.InstrumentDetail(ctx, "INS-404")
	assert.Error(t, err)
}

func TestCatalogExportStandards(t *testing.T) {
	file, notice := newCatalog(t).ExportStandards()
	assert.Equal(t, "standards.csv", file.Name)
	assert.Equal(t, "法規標準匯出完成", notice.Message)
	lines := strings.Split(string(file.Data), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[1], `"`))
}

func TestCatalogTemplates(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t)

	_, notice, err := c.UploadTemplate(ctx, "plan.pdf", bytes.NewReader(docxBytes(t)))
	require.True(t, domain.IsValidationError(err))
	assert.Equal(t, MsgDocxOnly, notice.Message)

	_, notice, err = c.UploadTemplate(ctx, "plan.docx", strings.NewReader("not a zip"))
	require.Error(t, err)
	assert.Equal(t, MsgDocxOnly, notice.Message)

	info, notice, err := c.UploadTemplate(ctx, `C:\templates\監測計畫書.docx`, bytes.NewReader(docxBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "模板上傳成功！", notice.Message)
	assert.Equal(t, "templates/監測計畫書.docx", info.Key)
	assert.Equal(t, ContentTypeDocx, info.ContentType)

	_, err = blob.WriteBytes(ctx, c.blobs, blob.PrefixTemplates+"default-data.json", []byte("{}"), blob.PutOptions{})
	require.NoError(t, err)

	list, err := c.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "監測計畫書.docx", list[0].Metadata["original-name"])
}
