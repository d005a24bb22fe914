package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsFresh(now.Add(-time.Hour), now, 2*time.Hour))
	assert.False(t, IsFresh(now.Add(-2*time.Hour), now, 2*time.Hour))
	assert.False(t, IsFresh(time.Time{}, now, FreshnessStoredOptions))
}
