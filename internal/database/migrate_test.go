package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateCreatesPublicView(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	// a second run drops and recreates the view
	require.NoError(t, AutoMigrate(db))

	hash := "$2a$10$abcdefghijklmnopqrstuv"
	empty := ""
	pages := []models.LovePage{
		{ID: "p1", UserID: "u1", Slug: "slugone001", Title: "One", Content: models.NewJSON([]byte(`{"sections":[],"themeSlug":"romantic-rose"}`)), IsPublished: true, PrivacyMode: "password", PasswordHash: &hash},
		{ID: "p2", UserID: "u1", Slug: "slugtwo002", Title: "Two", Content: models.NewJSON([]byte(`{"sections":[],"themeSlug":"romantic-rose"}`)), IsPublished: true, PrivacyMode: "public", PasswordHash: &empty},
		{ID: "p3", UserID: "u1", Slug: "slugthree3", Title: "Three", Content: models.NewJSON([]byte(`{"sections":[],"themeSlug":"romantic-rose"}`)), IsPublished: true, PrivacyMode: "public"},
	}
	require.NoError(t, db.Create(&pages).Error)

	var rows []models.LovePagePublic
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].IsPasswordProtected)
	assert.False(t, rows[1].IsPasswordProtected)
	assert.False(t, rows[2].IsPasswordProtected)

	var cols []string
	require.NoError(t, db.Raw("SELECT name FROM pragma_table_info('love_pages_public')").Scan(&cols).Error)
	assert.NotContains(t, cols, "password_hash")

	assert.True(t, db.Migrator().HasIndex(&models.LovePage{}, models.LovePagesOwnerIndex))
}
