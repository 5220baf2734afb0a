package factory

import (
	"context"
	"fmt"

	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
)

func New(ctx context.Context, conf *config.StoreConfig) (store.Backend, error) {
	switch conf.Driver {
	case config.StoreDriverMemory:
		return store.NewMemoryStore(), nil
	case config.StoreDriverSQLite:
		s, err := store.NewSQLiteStore(ctx, conf.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", conf.Driver)
	}
}
