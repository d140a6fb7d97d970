package docgen

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
}

func makeDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"word/document.xml":            wrapBody(body),
		"word/_rels/document.xml.rels": `<Relationships>{{NotACommand}}</Relationships>`,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func readPartNamed(t *testing.T, docx []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return string(b)
	}
	t.Fatalf("part %s missing", name)
	return ""
}

func TestMergeRunsJoinsSplitCommands(t *testing.T) {
	in := `<w:p><w:r><w:t>{{Cust</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">omName1}} 報告</w:t></w:r></w:p>`
	want := `<w:p><w:r><w:t>{{CustomName1}}</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve"> 報告</w:t></w:r></w:p>`
	if got := mergeRuns(in); got != want {
		t.Fatalf("unexpected merge\n got %s\nwant %s", got, want)
	}
	plain := `<w:p><w:r><w:t>{{A}}</w:t></w:r><w:r><w:t>{{B}}</w:t></w:r></w:p>`
	if got := mergeRuns(plain); got != plain {
		t.Fatalf("intact commands must not move: %s", got)
	}
	braces := `<w:r><w:t>{</w:t></w:r><w:r><w:t>{ProjectId}</w:t></w:r><w:r><w:t>}</w:t></w:r>`
	if got := mergeRuns(braces); !strings.Contains(got, `<w:t>{{ProjectId}}</w:t>`) {
		t.Fatalf("expected braces merged, got %s", got)
	}
}

func TestRenderScalarsAreEscaped(t *testing.T) {
	tpl := makeDocx(t, `<w:p><w:r><w:t>客戶：{{Client</w:t></w:r><w:r><w:t>Name}}／{{INS ProjectId}}／{{MonitoringDays}}</w:t></w:r></w:p>`)
	out, err := Render(tpl, map[string]any{"ClientName": `A&B <公司> "x"`, "ProjectId": "YOC114-001", "MonitoringDays": 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := readPartNamed(t, out, "word/document.xml")
	if !strings.Contains(doc, "<w:t>客戶：A&amp;B &lt;公司&gt; &#34;x&#34;</w:t>") || !strings.Contains(doc, "<w:t>／YOC114-001／2</w:t>") {
		t.Fatalf("unexpected document %s", doc)
	}
	if rels := readPartNamed(t, out, "word/_rels/document.xml.rels"); !strings.Contains(rels, "{{NotACommand}}") {
		t.Fatalf("non-content parts must be copied verbatim: %s", rels)
	}
}

func TestRenderRepeatsTableRow(t *testing.T) {
	tpl := makeDocx(t, `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>工作</w:t></w:r></w:p></w:tc></w:tr>`+
		`<w:tr><w:tc><w:p><w:r><w:t>{{FOR row IN Schedule}}{{$row.JobName}}</w:t></w:r></w:p></w:tc>`+
		`<w:tc><w:p><w:r><w:t>{{$row.JobDate}}{{END-FOR row}}</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)
	out, err := Render(tpl, map[string]any{"Schedule": []map[string]any{
		{"JobName": "松山廠區 監測規劃", "JobDate": "114.03月"},
		{"JobName": "執行環境監測", "JobDate": "114.03月"},
		{"JobName": "松山廠區 監測報告", "JobDate": "114.04月"},
	}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := readPartNamed(t, out, "word/document.xml")
	if n := strings.Count(doc, "<w:tr>"); n != 4 {
		t.Fatalf("expected header plus 3 rows, got %d: %s", n, doc)
	}
	if !strings.Contains(doc, "<w:t>松山廠區 監測報告</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>114.04月</w:t>") {
		t.Fatalf("row cells not rendered: %s", doc)
	}
	if strings.Contains(doc, "FOR") {
		t.Fatalf("loop commands must be removed: %s", doc)
	}
}

func TestRenderRepeatsParagraphBlock(t *testing.T) {
	tpl := makeDocx(t, `<w:p><w:r><w:t>{{FOR item IN Items}}</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>• {{item}}</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>{{END-FOR item}}</w:t></w:r></w:p><w:p><w:r><w:t>end</w:t></w:r></w:p>`)
	out, err := Render(tpl, map[string]any{"Items": []string{"甲醛(HCHO)", "一氧化碳(CO)"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := readPartNamed(t, out, "word/document.xml")
	want := `<w:body><w:p><w:r><w:t>• 甲醛(HCHO)</w:t></w:r></w:p><w:p><w:r><w:t>• 一氧化碳(CO)</w:t></w:r></w:p><w:p><w:r><w:t>end</w:t></w:r></w:p></w:body>`
	if !strings.Contains(doc, want) {
		t.Fatalf("unexpected body %s", doc)
	}
}

func TestRenderInlineLoopAndFormatting(t *testing.T) {
	tpl := makeDocx(t, `<w:p><w:r><w:t>{{FOR n IN Values}}[{{formatNumber($n, 2)}}]{{END-FOR n}} {{formatDate(MonitoringDate)}} {{formatDate(Missing)}}</w:t></w:r></w:p>`)
	out, err := Render(tpl, map[string]any{
		"Values":         []any{3.14159, 2, "n/a"},
		"MonitoringDate": "2025-03-20",
		"Missing":        "",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := readPartNamed(t, out, "word/document.xml")
	if !strings.Contains(doc, "<w:t>[3.14][2.00][n/a] 2025年3月20日 </w:t>") {
		t.Fatalf("unexpected document %s", doc)
	}
}

func TestRenderErrors(t *testing.T) {
	cases := map[string]string{
		"undefined variable": `<w:p><w:r><w:t>{{Nope}}</w:t></w:r></w:p>`,
		"unmatched loop":     `<w:p><w:r><w:t>{{FOR row IN Rows}}</w:t></w:r></w:p>`,
		"stray end":          `<w:p><w:r><w:t>{{END-FOR row}}</w:t></w:r></w:p>`,
		"unsupported":        `<w:p><w:r><w:t>{{IF x > 1}}</w:t></w:r></w:p>`,
		"unknown loop var":   `<w:p><w:r><w:t>{{$row.Name}}</w:t></w:r></w:p>`,
		"loop over scalar":   `<w:p><w:r><w:t>{{FOR row IN Name}}x{{END-FOR row}}</w:t></w:r></w:p>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Render(makeDocx(t, body), map[string]any{"Name": "x", "Rows": []any{}}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	_, err := Render(makeDocx(t, cases["unmatched loop"]), nil)
	if !errors.Is(err, errNoMatch) {
		t.Fatalf("expected errNoMatch, got %v", err)
	}
	if _, err := Render([]byte("not a zip"), nil); err == nil {
		t.Fatalf("expected zip error")
	}
}

func TestBuiltinTemplateRendersWithDefaults(t *testing.T) {
	tpl, err := BuiltinTemplate()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	project, client := sampleProject(), sampleClient()
	out, err := Render(tpl, BuildVariables(project, client, BuiltinDefaults(), testNow))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := readPartNamed(t, out, "word/document.xml")
	for _, want := range []string{"味全食品工業股份有限公司 松山廠區", "台北市松山區八德路四段575巷20號3樓", "113.12月", "執行環境監測", "一氧化碳(CO)", "友喬檢驗有限公司 by Rex", "2025/06/15"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in %s", want, doc)
		}
	}
	if strings.Contains(doc, "{{") {
		t.Fatalf("unrendered commands left: %s", doc)
	}
}
