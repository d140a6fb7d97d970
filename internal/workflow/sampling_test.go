package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"envmon/internal/export"
	"envmon/pkg/domain"
)

func openSession(t *testing.T, opts ...SessionOption) *SamplingSession {
	t.Helper()
	s, err := OpenSamplingSession(context.Background(), newSeededService(t), "YOC114-001", opts...)
	require.NoError(t, err)
	return s
}

func parkingData() domain.SamplingData {
	return domain.SamplingData{
		Environment: domain.EnvironmentReadings{SamplingDate: "2025-06-15", Weather: "晴", Temperature: "28.5", Humidity: "65"},
		Items: map[string]domain.ItemMeasurement{
			"一氧化碳(CO)":  {Value: "2.1", Unit: "ppm"},
			"二氧化碳(CO2)": {Value: "612", Unit: "ppm", Note: "尖峰時段"},
		},
	}
}

func TestSessionNavigationBoundaries(t *testing.T) {
	s := openSession(t)
	pt, idx := s.Current()
	assert.Equal(t, "P001", pt.ID)
	assert.Equal(t, 0, idx)

	_, moved, notice := s.Prev()
	assert.False(t, moved)
	assert.Equal(t, "已是第一個點位", notice.Message)

	for i := 0; i < 3; i++ {
		_, moved, _ = s.Next()
		require.True(t, moved)
	}
	pt, moved, notice = s.Next()
	assert.False(t, moved)
	assert.Equal(t, "P004", pt.ID)
	assert.Equal(t, "已是最後一個點位", notice.Message)

	require.NoError(t, s.SelectPoint("P002"))
	_, idx = s.Current()
	assert.Equal(t, 1, idx)
	assert.Error(t, s.SelectPoint("P099"))
}

func TestOpenSessionRequiresPoints(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	_, _, err := svc.CreateProject(ctx, domain.Project{ClientID: "CLIENT_001", ProjectName: "空專案", MonitoringType: "作業環境監測"})
	require.NoError(t, err)
	_, err = OpenSamplingSession(ctx, svc, "YOC25-001")
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = OpenSamplingSession(ctx, svc, "YOC99-999")
	assert.Error(t, err)
}

func TestSessionFormDefaults(t *testing.T) {
	s := openSession(t)
	form, err := s.Form(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B1F 停車場（汽車） - 採樣記錄", form.Title)
	assert.Equal(t, "2025-06-15", form.Environment.SamplingDate)
	assert.False(t, form.Saved)
	require.Len(t, form.Items, 5)
	assert.Equal(t, "一氧化碳(CO)", form.Items[0].Item)
	assert.Empty(t, form.Items[0].Value)
	assert.Equal(t, domain.UnitOptions, form.UnitOptions)
}

func TestSessionSaveCompletesPoint(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)

	rec, notice, err := s.Save(ctx, parkingData())
	require.NoError(t, err)
	assert.Equal(t, "採樣資料儲存成功！", notice.Message)
	assert.Equal(t, domain.RecordStatusCompleted, rec.Status)
	assert.Len(t, rec.Data.Items, 5, "every point item is stored")
	assert.Equal(t, "612", rec.Data.Items["二氧化碳(CO2)"].Value)

	statuses, err := s.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordStatusCompleted, statuses["P001"])
	assert.Equal(t, domain.RecordStatusPending, statuses["P002"])

	form, err := s.Form(ctx)
	require.NoError(t, err)
	assert.True(t, form.Saved)
	assert.Equal(t, "晴", form.Environment.Weather)

	// a second save replaces the record
	data := parkingData()
	data.Items["一氧化碳(CO)"] = domain.ItemMeasurement{Value: "3.4", Unit: "ppm"}
	_, _, err = s.Save(ctx, data)
	require.NoError(t, err)
	rows, err := s.Review(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "3.4", rows[0].Value)
	assert.Equal(t, "B1F 停車場（汽車）", rows[0].PointName)
}

func TestSessionSaveRejectsBadMeasurements(t *testing.T) {
	cases := map[string]domain.ItemMeasurement{
		"甲醛(HCHO)": {Value: "0.01", Unit: "ppm"},
		"一氧化碳(CO)": {Value: "high", Unit: "ppm"},
		"溫度":       {Value: "25", Unit: "kelvin"},
	}
	for item, m := range cases {
		t.Run(item, func(t *testing.T) {
			s := openSession(t)
			_, notice, err := s.Save(context.Background(), domain.SamplingData{Items: map[string]domain.ItemMeasurement{item: m}})
			require.True(t, domain.IsValidationError(err))
			assert.Equal(t, LevelError, notice.Level)
			assert.Equal(t, domain.MsgInvalidValue, notice.Message)
		})
	}
}

func TestSessionCalibrate(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	rec, notice, err := s.Calibrate(ctx, CalibrationForm{
		InstrumentID:          "CO-Meter-01",
		BeforeCalibration:     "48.2",
		StandardConcentration: "50",
		AfterCalibration:      "49.6",
	})
	require.NoError(t, err)
	assert.Equal(t, "儀器校正記錄已儲存", notice.Message)
	assert.Equal(t, "1.0081", rec.CalibrationFactor)
	assert.Equal(t, DefaultOperator, rec.Operator)
	assert.Equal(t, "YOC114-001", rec.ProjectID)

	explicit, _, err := openSession(t, WithOperator("張技術員")).Calibrate(ctx, CalibrationForm{InstrumentID: "CO-Meter-01", CalibrationFactor: "1.02"})
	require.NoError(t, err)
	assert.Equal(t, "1.02", explicit.CalibrationFactor)
	assert.Equal(t, "張技術員", explicit.Operator)

	_, _, err = s.Calibrate(ctx, CalibrationForm{InstrumentID: "CO-Meter-01", AfterCalibration: "abc"})
	assert.True(t, domain.IsValidationError(err))

	assert.Equal(t, "", deriveFactor("50", "0"))
	assert.Equal(t, "", deriveFactor("", "49"))
}

func TestSessionQCSample(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	_, _, _ = s.Next()
	rec, notice, err := s.RecordQCSample(ctx, QCSampleForm{BlankSampleID: "B-01", DuplicateOriginalID: "S-02", SpikedSampleID: "K-01"})
	require.NoError(t, err)
	assert.Equal(t, "品管樣本記錄已儲存", notice.Message)
	assert.Equal(t, "P002", rec.PointID)
	assert.Equal(t, "S-02", rec.DuplicateSample.OriginalSampleID)
}

func TestSessionExports(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	_, _, err := s.Save(ctx, parkingData())
	require.NoError(t, err)

	file, notice, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "採樣資料已匯出", notice.Message)
	assert.Equal(t, "sampling_data_YOC114-001_2025-06-15.json", file.Name)
	var bundle export.SamplingBundle
	require.NoError(t, json.Unmarshal(file.Data, &bundle))
	assert.Equal(t, "松山廠區", bundle.ProjectName)
	assert.Contains(t, bundle.SamplingData, "P001")

	book, _, err := s.ExportWorkbook(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sampling_data_YOC114-001_2025-06-15.xlsx", book.Name)
	f, err := excelize.OpenReader(bytes.NewReader(book.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("採樣數據")
	require.NoError(t, err)
	assert.Len(t, rows, 1+5)
}

func TestSuggestInstrumentID(t *testing.T) {
	s := openSession(t)
	assert.Equal(t, "CO_1749979800000", s.SuggestInstrumentID("CO"))
}
