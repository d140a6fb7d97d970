// Package blob is the entry point to binary artifact storage: uploaded docx
// templates, generated documents and report files.
package blob

import (
	"envmon/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound    = core.ErrNotFound
	ErrUnsupported = core.ErrUnsupported
)

// Key prefixes partitioning the store by artifact kind.
const (
	PrefixTemplates = "templates/"
	PrefixDocuments = "documents/"
	PrefixReports   = "reports/"
)
