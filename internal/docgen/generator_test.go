package docgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"envmon/internal/blob"
	"envmon/internal/core"
	"envmon/internal/infra/kv/memory"
	"envmon/internal/kv"
	"envmon/internal/seed"
	"envmon/pkg/domain"
)

func newGenerator(t *testing.T) (*Generator, blob.Store) {
	t.Helper()
	clock := core.ClockFunc(func() time.Time { return testNow })
	adapter := kv.New(memory.New())
	svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()), core.WithClock(clock))
	if _, err := seed.New(adapter, svc, seed.WithClock(clock)).InitializeData(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	blobs := blob.NewMemory()
	return NewGenerator(svc, blobs), blobs
}

func TestDownloadStoresDocument(t *testing.T) {
	ctx := context.Background()
	g, blobs := newGenerator(t)
	doc, err := g.Download(ctx, "YOC114-001", domain.DocPlan)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if doc.Name != "味全食品工業股份有限公司_松山廠區_監測計畫書_20250615.docx" {
		t.Fatalf("unexpected name %q", doc.Name)
	}
	stored, info, err := blob.ReadBytes(ctx, blobs, blob.PrefixDocuments+doc.Name)
	if err != nil {
		t.Fatalf("read stored document: %v", err)
	}
	if info.ContentType != ContentType || info.Metadata["project"] != "YOC114-001" || info.Metadata["doc-type"] != "plan" {
		t.Fatalf("unexpected blob info %+v", info)
	}
	xml := readPartNamed(t, stored, "word/document.xml")
	for _, want := range []string{"味全食品工業股份有限公司", "台北市松山區八德路四段575巷20號3樓", "一氧化碳(CO)", "2025/06/15"} {
		if !strings.Contains(xml, want) {
			t.Fatalf("document missing %q", want)
		}
	}
}

func TestPreviewDoesNotStore(t *testing.T) {
	ctx := context.Background()
	g, blobs := newGenerator(t)
	doc, err := g.Preview(ctx, "YOC114-001", domain.DocPlan)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if doc.Title != "計畫書預覽 - 松山廠區" || len(doc.Data) == 0 {
		t.Fatalf("unexpected preview %+v", doc.Title)
	}
	infos, err := blobs.List(ctx, blob.PrefixDocuments)
	if err != nil || len(infos) != 0 {
		t.Fatalf("preview must not store documents: %v %+v", err, infos)
	}
}

func TestDownloadMissingProject(t *testing.T) {
	g, _ := newGenerator(t)
	_, err := g.Download(context.Background(), "YOC999-999", domain.DocPlan)
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Op != OpDownload {
		t.Fatalf("expected generation error, got %v", err)
	}
	if err.Error() != "產生計畫書失敗: 找不到專案資料" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected wrapped not found")
	}
}

func TestUnknownDocType(t *testing.T) {
	g, _ := newGenerator(t)
	if _, err := g.Render(context.Background(), "YOC114-001", domain.DocType("memo")); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestUploadedTemplateWins(t *testing.T) {
	ctx := context.Background()
	g, blobs := newGenerator(t)
	custom := makeDocx(t, `<w:p><w:r><w:t>報價對象 {{ClientName}}</w:t></w:r></w:p>`)
	if _, err := blob.WriteBytes(ctx, blobs, blob.PrefixTemplates+"quote.docx", custom, blob.PutOptions{}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	doc, err := g.Render(ctx, "YOC114-002", domain.DocQuote)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if xml := readPartNamed(t, doc.Data, "word/document.xml"); !strings.Contains(xml, "報價對象 葡萄王生技股份有限公司") {
		t.Fatalf("expected uploaded template, got %s", xml)
	}
	// other types still use the built-in template
	plan, err := g.Render(ctx, "YOC114-002", domain.DocPlan)
	if err != nil {
		t.Fatalf("render plan: %v", err)
	}
	if xml := readPartNamed(t, plan.Data, "word/document.xml"); strings.Contains(xml, "報價對象") {
		t.Fatalf("plan must not use the quote template")
	}
}

func TestBrokenSharedTemplate(t *testing.T) {
	ctx := context.Background()
	g, blobs := newGenerator(t)
	broken := makeDocx(t, `<w:p><w:r><w:t>{{NoSuchVariable}}</w:t></w:r></w:p>`)
	if _, err := blob.WriteBytes(ctx, blobs, blob.PrefixTemplates+SharedTemplate, broken, blob.PutOptions{}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err := g.Preview(ctx, "YOC114-001", domain.DocReport)
	if err == nil || !strings.HasPrefix(err.Error(), "預覽監測報告失敗: 生成文檔失敗") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestUploadedDefaultsDocument(t *testing.T) {
	ctx := context.Background()
	g, blobs := newGenerator(t)
	tpl := makeDocx(t, `<w:p><w:r><w:t>{{Motto}}</w:t></w:r></w:p>`)
	if _, err := blob.WriteBytes(ctx, blobs, blob.PrefixTemplates+"plan.docx", tpl, blob.PutOptions{}); err != nil {
		t.Fatalf("upload template: %v", err)
	}
	defaults := []byte(`{"defaultVariables":{"basicVariables":{"Motto":"品質第一"}}}`)
	if _, err := blob.WriteBytes(ctx, blobs, blob.PrefixTemplates+DefaultsDocument, defaults, blob.PutOptions{}); err != nil {
		t.Fatalf("upload defaults: %v", err)
	}
	doc, err := g.Render(ctx, "YOC114-001", domain.DocPlan)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if xml := readPartNamed(t, doc.Data, "word/document.xml"); !strings.Contains(xml, "品質第一") {
		t.Fatalf("expected defaults variable, got %s", xml)
	}

	if _, err := blob.WriteBytes(ctx, blobs, blob.PrefixTemplates+DefaultsDocument, []byte("{"), blob.PutOptions{}); err != nil {
		t.Fatalf("upload defaults: %v", err)
	}
	if _, err := g.Render(ctx, "YOC114-001", domain.DocPlan); err == nil {
		t.Fatalf("expected decode error")
	}
}
