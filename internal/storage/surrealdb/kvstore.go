package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/fihub/internal/common"
)

const kvTable = "system_kv"

type sysKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KVStore holds system settings in the system_kv table, one record per key
type KVStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewKVStore(db *surrealdb.DB, logger *common.Logger) *KVStore {
	return &KVStore{
		db:     db,
		logger: logger,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	kv, err := surrealdb.Select[sysKV](ctx, s.db, surrealmodels.NewRecordID(kvTable, key))
	if err != nil {
		return "", fmt.Errorf("failed to select system KV: %w", err)
	}
	if kv == nil || kv.Key == "" {
		return "", fmt.Errorf("%w: key %s", common.ErrNotFound, key)
	}
	return kv.Value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	sql := "UPSERT type::record($tb, $id) CONTENT $kv"
	vars := map[string]any{"tb": kvTable, "id": key, "kv": sysKV{Key: key, Value: value}}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]sysKV](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to set system KV after retries: %w", err)
		}
	}
	return nil
}
