package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/warranty/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	up, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_create_warranty_quotes.up.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(up), domain.QuoteSnapshot{}.TableName()))
}

func TestRunMigrations_NilDB(t *testing.T) {
	_, err := RunMigrations(nil)
	assert.ErrorIs(t, err, errNoHandle)

	_, err = SchemaVersion(nil)
	assert.ErrorIs(t, err, errNoHandle)
}

func TestApply_SQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration_apply?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.Config{DBType: "sqlite", AutoMigrate: true}
	require.NoError(t, Apply(conn, cfg, zap.NewNop()))
	assert.True(t, conn.Migrator().HasTable(&domain.QuoteSnapshot{}))
	assert.True(t, conn.Migrator().HasIndex(&domain.QuoteSnapshot{}, "ux_warranty_quotes_checksum"))
}

func TestApply_Disabled(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration_disabled?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Apply(conn, config.Config{DBType: "sqlite"}, zap.NewNop()))
	assert.False(t, conn.Migrator().HasTable(&domain.QuoteSnapshot{}))
}
