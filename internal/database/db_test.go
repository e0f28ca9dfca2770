package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inyourbones/newsdesk/internal/models"
)

func TestFeedRegistryRoundTrip(t *testing.T) {
	db, err := NewDB(NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	defer db.Close()

	feed := models.NewFeed()
	feed.URL = "https://stereogum.com/feed"
	feed.Source = sql.NullString{String: "Stereogum", Valid: true}
	require.NoError(t, db.InsertFeed(feed))

	feeds, err := db.ActiveFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "https://stereogum.com/feed", feeds[0].URL)
	assert.Equal(t, "active", feeds[0].Status)
}

func TestDeleteDBRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, DeleteDB(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteDBMissingFileIsNoop(t *testing.T) {
	assert.NoError(t, DeleteDB(filepath.Join(t.TempDir(), "never-created.db")))
}

func TestActiveFeedsSkipsFailedAndDeleted(t *testing.T) {
	db, err := NewDB(NewConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	defer db.Close()

	insert := func(url string) {
		feed := models.NewFeed()
		feed.URL = url
		require.NoError(t, db.InsertFeed(feed))
	}
	insert("https://a/active")
	insert("https://a/failed")
	_, err = db.Exec("UPDATE feeds SET status = 'failed' WHERE url = ?", "https://a/failed")
	require.NoError(t, err)
	insert("https://a/deleted")
	_, err = db.Exec("UPDATE feeds SET deleted_at = ? WHERE url = ?", time.Now(), "https://a/deleted")
	require.NoError(t, err)

	feeds, err := db.ActiveFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "https://a/active", feeds[0].URL)
}
