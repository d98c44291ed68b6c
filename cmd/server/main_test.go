package main

import (
	"testing"

	"github.com/SAP-F-2025/test-engine-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrateOnly(t *testing.T) {
	cfg := &config.Config{Storage: config.StoragePostgres}
	require.NoError(t, applyMigrateOnly(cfg, false))
	assert.False(t, cfg.Database.AutoMigrate)

	require.NoError(t, applyMigrateOnly(cfg, true))
	assert.True(t, cfg.Database.AutoMigrate)

	err := applyMigrateOnly(&config.Config{Storage: config.StorageMemory}, true)
	assert.Error(t, err)
}
