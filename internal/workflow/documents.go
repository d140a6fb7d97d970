package workflow

import (
	"context"

	"envmon/internal/docgen"
	"envmon/pkg/domain"
)

// Documents backs the plan, quotation and report buttons of the project list.
type Documents struct {
	gen *docgen.Generator
}

// NewDocuments returns a controller over gen.
func NewDocuments(gen *docgen.Generator) *Documents { return &Documents{gen: gen} }

// Pending is the notice shown while a document is rendered.
func Pending(docType domain.DocType) Notice {
	return info("正在產生" + docType.Label() + "...")
}

// Download renders the document and stores it with the generated files.
func (d *Documents) Download(ctx context.Context, projectID string, docType domain.DocType) (docgen.Document, Notice, error) {
	doc, err := d.gen.Download(ctx, projectID, docType)
	if err != nil {
		return docgen.Document{}, Notice{Level: LevelError, Message: err.Error()}, err
	}
	return doc, success(docType.Label() + "產生完成！"), nil
}

// Preview renders the document for display.
func (d *Documents) Preview(ctx context.Context, projectID string, docType domain.DocType) (docgen.Document, Notice, error) {
	doc, err := d.gen.Preview(ctx, projectID, docType)
	if err != nil {
		return docgen.Document{}, Notice{Level: LevelError, Message: err.Error()}, err
	}
	return doc, info(doc.Title), nil
}
