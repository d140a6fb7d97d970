package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// WriteBytes stores data at key.
func WriteBytes(ctx context.Context, s Store, key string, data []byte, opts PutOptions) (Info, error) {
	info, err := s.Put(ctx, key, bytes.NewReader(data), opts)
	if err != nil {
		return Info{}, fmt.Errorf("write blob %s: %w", key, err)
	}
	return info, nil
}

// ReadBytes loads the full blob at key.
func ReadBytes(ctx context.Context, s Store, key string) ([]byte, Info, error) {
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, Info{}, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Info{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, info, nil
}

// IsNotFound reports whether err signals a missing blob.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
