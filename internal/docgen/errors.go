package docgen

import (
	"errors"

	"envmon/pkg/domain"
)

// Operation distinguishes downloads from previews in error messages.
type Operation string

const (
	OpDownload Operation = "產生"
	OpPreview  Operation = "預覽"
)

// GenerationError wraps any failure of a document request.
type GenerationError struct {
	Op      Operation
	DocType domain.DocType
	Err     error
}

// Error renders 產生{label}失敗: … or 預覽{label}失敗: ….
func (e *GenerationError) Error() string {
	return string(e.Op) + e.DocType.Label() + "失敗: " + reason(e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func reason(err error) string {
	var nf domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf.Notice()
	}
	return err.Error()
}
