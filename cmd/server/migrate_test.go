package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/api"
	"github.com/orienta/orienta/internal/backup"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	src := api.NewMemoryStore()
	require.NoError(t, src.AddUser(&services.User{ID: "u1", Email: "ana@example.com", Role: models.RoleStudent, Active: true, CreatedAt: time.Now().UTC()}))
	_, err := api.Seed(src)
	require.NoError(t, err)
	m, err := backup.NewManager(t.TempDir(), src, nil)
	require.NoError(t, err)
	f, err := m.Create(context.Background())
	require.NoError(t, err)
	return filepath.Join(m.Dir(), f.Filename)
}

func TestImportSnapshotIntoEmptyStore(t *testing.T) {
	path := writeSnapshot(t)
	dst := api.NewMemoryStore()

	ok, err := ImportSnapshot(dst, path, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, dst.FindUserByEmail("ana@example.com"))
	assert.NotEmpty(t, dst.ListQuestions())
}

func TestImportSnapshotSkips(t *testing.T) {
	path := writeSnapshot(t)

	populated := api.NewMemoryStore()
	_, err := api.Seed(populated)
	require.NoError(t, err)
	ok, err := ImportSnapshot(populated, path, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, populated.FindUserByEmail("ana@example.com"))

	ok, err = ImportSnapshot(api.NewMemoryStore(), filepath.Join(t.TempDir(), "missing.json.gz"), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ImportSnapshot(api.NewMemoryStore(), "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, ok)
}
