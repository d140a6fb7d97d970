// Package docgen renders plans, quotations and reports as Word documents
// from .docx templates filled with project and client data.
package docgen

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"time"

	"envmon/internal/blob"
	"envmon/internal/core"
	"envmon/internal/logx"
	"envmon/pkg/domain"
)

// ContentType is the MIME type of generated documents.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Blob names looked up under blob.PrefixTemplates.
const (
	SharedTemplate   = "my_template2.docx"
	DefaultsDocument = "docx-template-default-data.json"
)

var unsafeNameChars = regexp.MustCompile(`[^\w\x{4e00}-\x{9fff}]`)

// FileName returns {client}_{project}_{label}_{YYYYMMDD}.docx with
// characters outside word and CJK ranges replaced by underscores.
func FileName(client domain.Client, project domain.Project, docType domain.DocType, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.docx",
		unsafeNameChars.ReplaceAllString(client.CompanyName, "_"),
		unsafeNameChars.ReplaceAllString(project.ProjectName, "_"),
		docType.FileLabel(),
		now.Format("20060102"))
}

// Document is a rendered Word file.
type Document struct {
	Name      string
	Title     string
	ProjectID string
	DocType   domain.DocType
	Data      []byte
	Info      blob.Info
}

// Generator renders documents for projects held by svc. Templates come from
// blobs at call time; generated downloads are stored there too.
type Generator struct {
	svc    *core.Service
	blobs  blob.Store
	logger core.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator returns a generator. blobs may be nil, in which case the
// built-in template and defaults are always used and downloads are not stored.
func NewGenerator(svc *core.Service, blobs blob.Store, opts ...Option) *Generator {
	g := &Generator{svc: svc, blobs: blobs, logger: logx.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Render builds the document without storing it.
func (g *Generator) Render(ctx context.Context, projectID string, docType domain.DocType) (Document, error) {
	if !docType.Known() {
		return Document{}, fmt.Errorf("不支援的文件類型: %s", docType)
	}
	project, err := g.svc.GetProject(ctx, projectID)
	if err != nil {
		return Document{}, err
	}
	client, err := g.svc.GetClient(ctx, project.ClientID)
	if err != nil {
		return Document{}, err
	}
	defaults, err := g.defaults(ctx)
	if err != nil {
		return Document{}, err
	}
	tpl, source, err := g.template(ctx, docType)
	if err != nil {
		return Document{}, err
	}
	now := g.svc.Now()
	vars := BuildVariables(project, client, defaults, now)
	if settings, err := g.svc.SystemSettings(ctx); err == nil && settings.CompanyName != "" {
		vars["CompanyName"] = settings.CompanyName
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := Render(tpl, vars)
	if err != nil {
		return Document{}, fmt.Errorf("生成文檔失敗: %w", err)
	}
	g.logger.Debug("document rendered", "project", projectID, "type", string(docType), "template", source, "bytes", len(data))
	return Document{
		Name:      FileName(client, project, docType, now),
		Title:     docType.Label() + "預覽 - " + project.ProjectName,
		ProjectID: project.ID,
		DocType:   docType,
		Data:      data,
	}, nil
}

// Download renders the document and stores it under documents/.
func (g *Generator) Download(ctx context.Context, projectID string, docType domain.DocType) (Document, error) {
	doc, err := g.Render(ctx, projectID, docType)
	if err != nil {
		return Document{}, &GenerationError{Op: OpDownload, DocType: docType, Err: err}
	}
	if g.blobs != nil {
		info, err := blob.WriteBytes(ctx, g.blobs, blob.PrefixDocuments+doc.Name, doc.Data, blob.PutOptions{
			ContentType: ContentType,
			Metadata:    map[string]string{"project": doc.ProjectID, "doc-type": string(docType)},
		})
		if err != nil {
			return Document{}, &GenerationError{Op: OpDownload, DocType: docType, Err: err}
		}
		doc.Info = info
	}
	g.logger.Info("document generated", "project", projectID, "type", string(docType), "file", doc.Name)
	return doc, nil
}

// Preview renders the document for display; nothing is stored.
func (g *Generator) Preview(ctx context.Context, projectID string, docType domain.DocType) (Document, error) {
	doc, err := g.Render(ctx, projectID, docType)
	if err != nil {
		return Document{}, &GenerationError{Op: OpPreview, DocType: docType, Err: err}
	}
	return doc, nil
}

// template returns the first of templates/{docType}.docx, the shared
// template and the built-in one.
func (g *Generator) template(ctx context.Context, docType domain.DocType) ([]byte, string, error) {
	if g.blobs != nil {
		for _, name := range []string{string(docType) + ".docx", SharedTemplate} {
			key := path.Join(blob.PrefixTemplates, name)
			data, _, err := blob.ReadBytes(ctx, g.blobs, key)
			if err == nil {
				return data, key, nil
			}
			if !blob.IsNotFound(err) {
				return nil, "", fmt.Errorf("載入樣板失敗: %w", err)
			}
		}
	}
	data, err := BuiltinTemplate()
	return data, "builtin", err
}

func (g *Generator) defaults(ctx context.Context) (Defaults, error) {
	if g.blobs == nil {
		return BuiltinDefaults(), nil
	}
	data, _, err := blob.ReadBytes(ctx, g.blobs, blob.PrefixTemplates+DefaultsDocument)
	switch {
	case err == nil:
		return ParseDefaults(data)
	case blob.IsNotFound(err):
		return BuiltinDefaults(), nil
	default:
		return Defaults{}, fmt.Errorf("載入預設資料失敗: %w", err)
	}
}
