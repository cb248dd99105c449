package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sites(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.SiteName
	}
	return out
}

func TestRepositoryAdd(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := NewRepository(nil)
	repo.now = fixedClock(now)

	rec, err := repo.Add(Record{SiteName: "example.com", Username: "alice", Password: []byte("p@ss")})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, uint64(1), repo.Revision())

	other, err := repo.Add(Record{SiteName: "example.com", Username: "bob"})
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, other.ID)
	assert.Equal(t, 2, repo.Len(), "duplicate site names are kept")
}

func TestRepositoryAddKeepsCreatedAt(t *testing.T) {
	created := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := NewRepository(nil)
	rec, err := repo.Add(Record{SiteName: "imported", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestRepositoryAddNormalizesCreatedAtToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*60*60)
	created := time.Date(2020, 6, 1, 12, 0, 0, 0, zone)
	repo := NewRepository(nil)
	rec, err := repo.Add(Record{SiteName: "imported", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, created.Equal(rec.CreatedAt))

	b, err := EncodeRecords(repo.List())
	require.NoError(t, err)
	decoded, err := DecodeRecords(b)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, rec.CreatedAt.Equal(decoded[0].CreatedAt))
	assert.Equal(t, time.UTC, decoded[0].CreatedAt.Location())
}

func TestRepositoryUpdateCopiesPassword(t *testing.T) {
	repo := NewRepository(nil)
	rec, err := repo.Add(Record{SiteName: "example.com", Password: []byte("old")})
	require.NoError(t, err)

	buf := []byte("fresh-secret")
	_, err = repo.Update(rec.ID, func(r *Record) { r.Password = buf })
	require.NoError(t, err)
	Zero(buf)

	got, ok := repo.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "fresh-secret", string(got.Password))
}

func TestRepositoryAddValidation(t *testing.T) {
	repo := NewRepository(nil)
	for _, site := range []string{"", "   ", "\t\n"} {
		_, err := repo.Add(Record{SiteName: site, Username: "alice"})
		assert.ErrorIs(t, err, ErrValidation, "site %q", site)
	}
	assert.Zero(t, repo.Len())
	assert.Zero(t, repo.Revision())
}

func TestRepositoryOrderAndSearch(t *testing.T) {
	repo := NewRepository(nil)
	for _, s := range []string{"GitHub", "GitLab", "Example"} {
		_, err := repo.Add(Record{SiteName: s, Username: "alice"})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"GitHub", "GitLab", "Example"}, sites(repo.List()))
	assert.Equal(t, []string{"GitHub", "GitLab"}, sites(repo.SearchBySite("git")))
	assert.Equal(t, []string{"GitHub"}, sites(repo.SearchBySite("HUB")))
	assert.Equal(t, []string{"GitHub", "GitLab", "Example"}, sites(repo.SearchBySite("")))

	none := repo.SearchBySite("nomatch")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRepositoryFindBySite(t *testing.T) {
	repo := NewRepository(nil)
	for _, s := range []string{"example.com", "Example.com", "example.org"} {
		_, err := repo.Add(Record{SiteName: s})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"example.com", "Example.com"}, sites(repo.FindBySite("EXAMPLE.COM")))
	assert.Empty(t, repo.FindBySite("example"))
}

func TestRepositoryListReturnsCopies(t *testing.T) {
	repo := NewRepository(nil)
	_, err := repo.Add(Record{SiteName: "example.com", Password: []byte("secret")})
	require.NoError(t, err)

	list := repo.List()
	list[0].SiteName = "changed"
	list[0].Password[0] = 'X'

	again := repo.List()
	assert.Equal(t, "example.com", again[0].SiteName)
	assert.Equal(t, "secret", string(again[0].Password))
}

func TestRepositoryUpdate(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	repo := NewRepository(nil)
	repo.now = fixedClock(created)
	rec, err := repo.Add(Record{SiteName: "example.com", Username: "alice", Password: []byte("old")})
	require.NoError(t, err)

	repo.now = fixedClock(later)
	updated, err := repo.Update(rec.ID, func(r *Record) {
		r.ID = "hijacked"
		r.CreatedAt = time.Time{}
		r.Username = "bob"
		r.Password = []byte("new")
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, "bob", updated.Username)

	got, ok := repo.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "new", string(got.Password))
	assert.Equal(t, uint64(2), repo.Revision())

	_, err = repo.Update(rec.ID, func(r *Record) { r.SiteName = " " })
	assert.ErrorIs(t, err, ErrValidation)
	got, _ = repo.Get(rec.ID)
	assert.Equal(t, "example.com", got.SiteName)

	_, err = repo.Update("missing", func(*Record) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryRemove(t *testing.T) {
	repo := NewRepository(nil)
	a, _ := repo.Add(Record{SiteName: "a"})
	b, _ := repo.Add(Record{SiteName: "b"})
	c, _ := repo.Add(Record{SiteName: "c"})

	require.NoError(t, repo.Remove(b.ID))
	assert.Equal(t, []string{"a", "c"}, sites(repo.List()))

	_, ok := repo.Get(b.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, repo.Remove(b.ID), ErrNotFound)

	require.NoError(t, repo.Remove(a.ID))
	require.NoError(t, repo.Remove(c.ID))
	assert.Zero(t, repo.Len())
	assert.Equal(t, uint64(6), repo.Revision())
}
