package blob

import (
	"envmon/internal/infra/blob/fs"
)

// NewFilesystem returns a Store rooted at root (./blobdata when empty).
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
