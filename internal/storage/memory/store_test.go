package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

func TestChainRoundTripAndIsolation(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	chain := &models.OptionsChain{
		Symbol:        "IBM",
		RequireGreeks: true,
		Contracts:     []models.OptionsContract{{ContractName: "C1", StrikePrice: 100}},
		UpdatedAt:     time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.OptionsStore().SaveChain(ctx, chain))

	// Mutating the caller's slice does not affect the stored copy
	chain.Contracts[0].ContractName = "mutated"

	got, err := m.OptionsStore().GetChain(ctx, "IBM", true)
	require.NoError(t, err)
	assert.Equal(t, "C1", got.Contracts[0].ContractName)

	_, err = m.OptionsStore().GetChain(ctx, "IBM", false)
	assert.True(t, errors.Is(err, common.ErrNotFound), "greeks flag is part of the key")
}

func TestChainUpsert(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	require.NoError(t, m.SaveChain(ctx, &models.OptionsChain{Symbol: "IBM", Contracts: []models.OptionsContract{{ContractName: "old"}}}))
	require.NoError(t, m.SaveChain(ctx, &models.OptionsChain{Symbol: "IBM", Contracts: []models.OptionsContract{{ContractName: "new"}}}))

	got, err := m.GetChain(ctx, "IBM", false)
	require.NoError(t, err)
	require.Len(t, got.Contracts, 1)
	assert.Equal(t, "new", got.Contracts[0].ContractName)
}

func TestKeyValue(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	_, err := m.KeyValueStore().Get(ctx, "alpha_vantage_api_key")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, m.KeyValueStore().Set(ctx, "alpha_vantage_api_key", "abc"))
	v, err := m.KeyValueStore().Get(ctx, "alpha_vantage_api_key")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	assert.NoError(t, m.Close())
}
