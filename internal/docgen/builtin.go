package docgen

import (
	"archive/zip"
	"bytes"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func cell(text string) string {
	return `<w:tc>` + para(text) + `</w:tc>`
}

func row(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tr>`)
	for _, c := range cells {
		b.WriteString(cell(c))
	}
	b.WriteString(`</w:tr>`)
	return b.String()
}

func table(rows ...string) string {
	return `<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>` + strings.Join(rows, "") + `</w:tbl>`
}

// builtinDocument is used when no template has been uploaded.
func builtinDocument() string {
	body := []string{
		para("{{CustomName1}}"),
		para("{{CustomName2}} {{ReportingYear}}環境監測"),
		para("專案編號：{{ProjectId}}"),
		para("監測類型：{{MonitoringType}}"),
		para("監測日期：{{MonitoringDate}}（共 {{MonitoringDays}} 日）"),
		para("監測點位數：{{MonitoringPoints}}"),
		para("聯絡人：{{ContactPerson}} {{ContactPhone}} {{ContactEmail}}"),
		para("{{ProjectDescription}}"),
		para("基本資料"),
		table(
			row("名稱", "地址", "員工人數"),
			row("{{FOR row IN BasicDataTable}}{{$row.Name}}", "{{$row.Address}}", "{{$row.EmpCounts}}{{END-FOR row}}"),
		),
		para("監測時程"),
		table(
			row("工作項目", "時間", "說明"),
			row("{{FOR job IN MonitoringScheduleTable}}{{$job.JobName}}", "{{$job.JobDate}}", "{{$job.JobMemo}}{{END-FOR job}}"),
		),
		para("監測項目"),
		para("{{FOR item IN MonitoringItemsList}}"),
		para("{{$item}}"),
		para("{{END-FOR item}}"),
		para("{{CompanyName}} {{CreateDate}}"),
		para("{{CreateBy}}"),
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		strings.Join(body, "") +
		`<w:sectPr/></w:body></w:document>`
}

// BuiltinTemplate returns the fallback .docx template.
func BuiltinTemplate() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", builtinDocument()},
	} {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
