package openidstore

import (
	"testing"
	"time"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dao.Migrate(db))
	return NewStore(db)
}

func TestStoreAndGetAssociation(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Unix()
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle:    "h1",
		Secret:    []byte("secret1"),
		Issued:    now - 100,
		Lifetime:  3600,
		AssocType: "HMAC-SHA1",
	}))
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle:    "h2",
		Secret:    []byte("secret2"),
		Issued:    now,
		Lifetime:  3600,
		AssocType: "HMAC-SHA1",
	}))

	assoc, err := s.GetAssociation("https://consumer.example/", "h1")
	require.NoError(t, err)
	require.NotNil(t, assoc)
	assert.Equal(t, []byte("secret1"), assoc.Secret)

	// Без handle возвращается последняя выданная.
	assoc, err = s.GetAssociation("https://consumer.example/", "")
	require.NoError(t, err)
	require.NotNil(t, assoc)
	assert.Equal(t, "h2", assoc.Handle)

	assoc, err = s.GetAssociation("https://other.example/", "")
	require.NoError(t, err)
	assert.Nil(t, assoc)
}

func TestStoreAssociationCoexist(t *testing.T) {
	s := newTestStore(t)

	// Повторный handle не перезаписывает прежнюю строку, читается
	// последняя выданная.
	now := time.Now().Unix()
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "h1", Secret: []byte("old"), Issued: now, Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "h1", Secret: []byte("new"), Issued: now + 10, Lifetime: 3600, AssocType: "HMAC-SHA256",
	}))

	var count int64
	require.NoError(t, s.db.Model(&dao.Association{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	assoc, err := s.GetAssociation("https://consumer.example/", "h1")
	require.NoError(t, err)
	require.NotNil(t, assoc)
	assert.Equal(t, []byte("new"), assoc.Secret)
	assert.Equal(t, "HMAC-SHA256", assoc.AssocType)
}

func TestGetAssociationExpired(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Unix()
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "stale", Secret: []byte("x"), Issued: now - 7200, Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))

	assoc, err := s.GetAssociation("https://consumer.example/", "stale")
	require.NoError(t, err)
	assert.Nil(t, assoc)

	// Истекшие записи вычищены при обращении.
	var count int64
	require.NoError(t, s.db.Model(&dao.Association{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestGetAssociationExpiredPurgesFilter(t *testing.T) {
	s := newTestStore(t)

	// Если последняя выданная истекла, удаляются все строки фильтра,
	// включая более старые с еще не истекшим сроком.
	now := time.Now().Unix()
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "long", Secret: []byte("x"), Issued: now - 1000, Lifetime: 86400, AssocType: "HMAC-SHA1",
	}))
	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "short", Secret: []byte("x"), Issued: now - 100, Lifetime: 10, AssocType: "HMAC-SHA1",
	}))
	require.NoError(t, s.StoreAssociation("https://other.example/", dao.Association{
		Handle: "keep", Secret: []byte("x"), Issued: now, Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))

	assoc, err := s.GetAssociation("https://consumer.example/", "")
	require.NoError(t, err)
	assert.Nil(t, assoc)

	assoc, err = s.GetAssociation("https://consumer.example/", "")
	require.NoError(t, err)
	assert.Nil(t, assoc)

	// Чужой serverURL не затронут.
	assoc, err = s.GetAssociation("https://other.example/", "")
	require.NoError(t, err)
	require.NotNil(t, assoc)
	assert.Equal(t, "keep", assoc.Handle)

	var count int64
	require.NoError(t, s.db.Model(&dao.Association{}).
		Where("server_url = ?", "https://consumer.example/").Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRemoveAssociation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.StoreAssociation("https://consumer.example/", dao.Association{
		Handle: "h1", Secret: []byte("x"), Issued: time.Now().Unix(), Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))

	ok, err := s.RemoveAssociation("https://consumer.example/", "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RemoveAssociation("https://consumer.example/", "missing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUseNonce(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Unix()

	ok, err := s.UseNonce("https://consumer.example/", now, "salt")
	require.NoError(t, err)
	assert.True(t, ok)

	// Повторный nonce отвергается.
	ok, err = s.UseNonce("https://consumer.example/", now, "salt")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UseNonce("https://consumer.example/", now, "salt2")
	require.NoError(t, err)
	assert.True(t, ok)

	skew := int64(NonceSkew.Seconds())
	ok, err = s.UseNonce("https://consumer.example/", now-skew-1, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UseNonce("https://consumer.example/", now+skew+1, "future")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanupNonces(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Unix()
	skew := int64(NonceSkew.Seconds())

	require.NoError(t, s.db.Create(&dao.Nonce{
		ID: dao.GenID(), ServerURL: "https://a/", Timestamp: now, Salt: "fresh",
	}).Error)
	require.NoError(t, s.db.Create(&dao.Nonce{
		ID: dao.GenID(), ServerURL: "https://a/", Timestamp: now - skew - 60, Salt: "stale",
	}).Error)

	removed, err := s.CleanupNonces()
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, s.db.Model(&dao.Nonce{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCleanupAssociations(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Unix()
	require.NoError(t, s.StoreAssociation("https://a/", dao.Association{
		Handle: "fresh", Secret: []byte("x"), Issued: now, Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))
	require.NoError(t, s.StoreAssociation("https://a/", dao.Association{
		Handle: "stale", Secret: []byte("x"), Issued: now - 7200, Lifetime: 3600, AssocType: "HMAC-SHA1",
	}))

	removed, err := s.CleanupAssociations()
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
