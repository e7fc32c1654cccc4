package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientpulse/internal/refresh/models"
	id "clientpulse/pkg/domain"
)

func TestParseFlags(t *testing.T) {
	req, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, models.AllClients(0), req.ToScope())

	cid := id.NewClientID()
	req, err = parseFlags([]string{"-scope", "client", "-client", cid.String(), "-year", "2024"})
	require.NoError(t, err)
	assert.Equal(t, models.OneClient(cid, 2024), req.ToScope())
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"-scope", "client"},
		{"-scope", "all", "-client", id.NewClientID().String()},
		{"-scope", "tenant"},
		{"-year", "12"},
		{"-unknown"},
	} {
		_, err := parseFlags(args)
		assert.Error(t, err, "%v", args)
	}
}
