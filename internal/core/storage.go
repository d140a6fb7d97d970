package core

import (
	"context"
	"fmt"

	"envmon/internal/kv"
)

// OpenPersistentStore opens the configured key/value backend and wraps it in
// a repository evaluating engine. The sqlite driver is used when cfg.Driver
// is empty.
func OpenPersistentStore(ctx context.Context, cfg kv.Config, engine *RulesEngine, opts ...kv.Option) (*Store, error) {
	adapter, err := kv.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	return NewStore(adapter, engine), nil
}
