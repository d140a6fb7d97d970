// Package workflow holds the form controllers that sit between user input and
// the entity repository: client registration, the project wizard, field
// sampling sessions and catalog administration.
package workflow

import (
	"errors"

	"envmon/internal/core"
	"envmon/pkg/domain"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user-facing outcome message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (n Notice) String() string { return string(n.Level) + ": " + n.Message }

func info(msg string) Notice    { return Notice{Level: LevelInfo, Message: msg} }
func success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }

// ValidationError is returned for rejected form input.
type ValidationError = domain.ValidationError

// Messages for rule violations surfaced to users.
const (
	MsgClientInUse      = "客戶仍有關聯專案，無法刪除"
	MsgDuplicateEntry   = "資料已存在"
	MsgUnknownReference = "參照的資料不存在"
	MsgPersistFailed    = "資料儲存失敗"
)

var ruleMessages = map[string]string{
	"tax_id_unique":      domain.MsgTaxIDInUse,
	"client_in_use":      MsgClientInUse,
	"catalog_keys":       MsgDuplicateEntry,
	"sampling_point_ids": MsgDuplicateEntry,
	"client_reference":   MsgUnknownReference,
	"sampling_reference": MsgUnknownReference,
}

// ErrorNotice converts err into an error notice. fallback is used when err
// carries no user-facing message of its own.
func ErrorNotice(err error, fallback string) Notice {
	return Notice{Level: LevelError, Message: messageFor(err, fallback)}
}

func messageFor(err error, fallback string) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var nf domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf.Notice()
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		for _, v := range rv.Result.Blocking() {
			if msg, ok := ruleMessages[v.Rule]; ok {
				return msg
			}
		}
	}
	if errors.Is(err, core.ErrPersist) {
		return MsgPersistFailed
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// fail pairs err with its notice.
func fail[T any](zero T, err error, fallback string) (T, Notice, error) {
	return zero, ErrorNotice(err, fallback), err
}
