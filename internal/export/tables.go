package export

import (
	"time"

	"envmon/pkg/domain"
)

const timestampLayout = "2006-01-02 15:04"

func stamp(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.UTC().Format(timestampLayout)
}

// ProjectTable lists projects with their client's company name.
func ProjectTable(projects []domain.Project, clients map[string]domain.Client) Table {
	t := Table{
		Sheet:   "專案資訊",
		Headers: []string{"專案編號", "專案名稱", "客戶", "監測日期", "監測天數", "監測類型", "點位數", "狀態", "場址地址"},
	}
	for _, p := range projects {
		company := p.ClientID
		if c, ok := clients[p.ClientID]; ok {
			company = c.CompanyName
		}
		t.Rows = append(t.Rows, []any{
			p.ID, p.ProjectName, company, orDash(p.MonitoringDate), p.MonitoringDays,
			orDash(p.MonitoringType), p.MonitoringPoints, string(p.Status), orDash(p.FacilityAddress),
		})
	}
	return t
}

// ClientTable lists clients.
func ClientTable(clients []domain.Client) Table {
	t := Table{
		Sheet:   "客戶資訊",
		Headers: []string{"客戶編號", "公司名稱", "統一編號", "聯絡人", "電話", "Email", "地址"},
	}
	for _, c := range clients {
		t.Rows = append(t.Rows, []any{c.ID, c.CompanyName, c.TaxID, c.ContactName, c.Phone, orDash(c.Email), orDash(c.Address)})
	}
	return t
}

// CalibrationTable lists on-site calibrations.
func CalibrationTable(records []domain.CalibrationRecord) Table {
	t := Table{
		Sheet:   "校正記錄",
		Headers: []string{"儀器編號", "校正前讀值", "標準濃度", "校正後讀值", "校正係數", "操作人員", "專案", "校正時間"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.InstrumentID, orDash(r.BeforeCalibration), orDash(r.StandardConcentration), orDash(r.AfterCalibration),
			orDash(r.CalibrationFactor), orDash(r.Operator), orDash(r.ProjectID), stamp(r.Timestamp),
		})
	}
	return t
}

// QCTable lists QC sample records.
func QCTable(records []domain.QCSampleRecord) Table {
	t := Table{
		Sheet:   "品管樣本",
		Headers: []string{"專案", "點位", "空白樣本", "重複樣本原樣本", "添加樣本", "記錄時間"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.ProjectID, r.PointID, orDash(r.BlankSample.SampleID), orDash(r.DuplicateSample.OriginalSampleID),
			orDash(r.SpikedSample.SampleID), stamp(r.Timestamp),
		})
	}
	return t
}

// StandardsTable lays the regulatory table out as a worksheet.
func StandardsTable(standards []Standard) Table {
	t := Table{
		Sheet:   "法規標準",
		Headers: []string{"類別", "污染物", "標準值", "單位", "平均時間", "法規依據", "生效日期"},
	}
	for _, s := range standards {
		t.Rows = append(t.Rows, []any{s.Category, s.Pollutant, s.Value, s.Unit, s.AverageTime, s.Regulation, s.EffectiveDate})
	}
	return t
}
