package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
)

func TestNewClient(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("normalizes fields", func(t *testing.T) {
		c, err := NewClient(id.NewClientID(), "  Acme   Pty Ltd ", " au ", "Gold", now)
		require.NoError(t, err)
		assert.Equal(t, "Acme Pty Ltd", c.CanonicalName)
		assert.Equal(t, "AU", c.Country)
		assert.True(t, c.IsActive())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewClient(id.NewClientID(), "   ", "AU", "", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects long name", func(t *testing.T) {
		_, err := NewClient(id.NewClientID(), strings.Repeat("a", 257), "AU", "", now)
		require.Error(t, err)
	})
}

func TestClientDeactivate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewClient(id.NewClientID(), "Acme", "AU", "", now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, c.Deactivate(later))
	assert.Equal(t, ClientStatusInactive, c.Status)
	assert.Equal(t, later, c.UpdatedAt)

	err = c.Deactivate(later)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestNewAlias(t *testing.T) {
	now := time.Now()
	a, err := NewAlias(" ACME  Corp ", "Acme Pty Ltd", now)
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", a.DisplayName)
	assert.True(t, a.IsActive)

	_, err = NewAlias("", "Acme", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewAlias("Acme", " ", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
