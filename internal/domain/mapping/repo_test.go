package mapping

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMapping(id, code string, at time.Time, status Status) *Mapping {
	return &Mapping{
		ID:          id,
		NamasteCode: code,
		ICD11Code:   "TM25.1",
		Confidence:  85,
		Status:      status,
		CreatedBy:   "dr-1",
		CreatedAt:   at,
	}
}

func repos(t *testing.T) map[string]Repository {
	t.Helper()
	bolt, err := NewBoltRepo(filepath.Join(t.TempDir(), "nested", "mappings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })
	return map[string]Repository{
		"memory": NewMemoryRepo(),
		"bolt":   bolt,
	}
}

func TestRepository_CreateGet(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := testMapping("MAP_1", "AYU-001", time.Now().UTC(), StatusPendingReview)
			require.NoError(t, repo.Create(ctx, m))

			got, err := repo.Get(ctx, "MAP_1")
			require.NoError(t, err)
			assert.Equal(t, "AYU-001", got.NamasteCode)
			assert.Equal(t, StatusPendingReview, got.Status)
			assert.Nil(t, got.ValidatedBy)

			assert.Error(t, repo.Create(ctx, m), "duplicate id")

			_, err = repo.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				status := StatusPendingReview
				if i%2 == 0 {
					status = StatusApproved
				}
				code := "AYU-001"
				if i == 4 {
					code = "AYU-002"
				}
				m := testMapping(fmt.Sprintf("MAP_%d", i), code, base.Add(time.Duration(i)*time.Minute), status)
				require.NoError(t, repo.Create(ctx, m))
			}

			items, total, err := repo.List(ctx, Filter{}, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, items, 5)
			assert.Equal(t, "MAP_4", items[0].ID)
			assert.Equal(t, "MAP_0", items[4].ID)

			items, total, err = repo.List(ctx, Filter{}, 2, 1)
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, items, 2)
			assert.Equal(t, "MAP_3", items[0].ID)
			assert.Equal(t, "MAP_2", items[1].ID)

			items, total, err = repo.List(ctx, Filter{Status: StatusApproved}, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, items, 3)

			items, total, err = repo.List(ctx, Filter{NamasteCode: "AYU-002"}, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			assert.Equal(t, "MAP_4", items[0].ID)

			items, _, err = repo.List(ctx, Filter{}, 10, 50)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestRepository_Update(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, testMapping("MAP_1", "AYU-001", time.Now().UTC(), StatusPendingReview)))

			at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
			got, err := repo.Update(ctx, "MAP_1", func(m *Mapping) error {
				return m.apply(Review{Approved: true, Notes: "ok", Reviewer: "rev-1"}, at)
			})
			require.NoError(t, err)
			assert.Equal(t, StatusApproved, got.Status)

			stored, err := repo.Get(ctx, "MAP_1")
			require.NoError(t, err)
			assert.Equal(t, StatusApproved, stored.Status)
			assert.Equal(t, "ok", stored.ReviewerNotes)
			require.NotNil(t, stored.ValidatedBy)
			assert.Equal(t, "rev-1", *stored.ValidatedBy)
			require.NotNil(t, stored.ValidatedAt)
			assert.True(t, stored.ValidatedAt.Equal(at))

			_, err = repo.Update(ctx, "MAP_1", func(m *Mapping) error {
				return m.apply(Review{Reviewer: "rev-2"}, at)
			})
			assert.ErrorIs(t, err, ErrInvalidTransition)

			stored, err = repo.Get(ctx, "MAP_1")
			require.NoError(t, err)
			assert.Equal(t, StatusApproved, stored.Status, "failed update leaves the record untouched")

			_, err = repo.Update(ctx, "missing", func(*Mapping) error { return nil })
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_UpdateAbort(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, testMapping("MAP_1", "AYU-001", time.Now().UTC(), StatusPendingReview)))

			boom := errors.New("boom")
			_, err := repo.Update(ctx, "MAP_1", func(m *Mapping) error {
				m.Notes = "changed"
				return boom
			})
			assert.ErrorIs(t, err, boom)

			stored, err := repo.Get(ctx, "MAP_1")
			require.NoError(t, err)
			assert.Empty(t, stored.Notes)
		})
	}
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(ctx, testMapping("MAP_1", "AYU-001", time.Now().UTC(), StatusPendingReview)))

	got, err := repo.Get(ctx, "MAP_1")
	require.NoError(t, err)
	got.Status = StatusRejected

	again, err := repo.Get(ctx, "MAP_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, again.Status)
}

func TestBoltRepo_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.db")
	ctx := context.Background()

	repo, err := NewBoltRepo(path)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, testMapping("MAP_1", "AYU-001", time.Now().UTC(), StatusPendingReview)))
	require.NoError(t, repo.Close())

	repo, err = NewBoltRepo(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Get(ctx, "MAP_1")
	require.NoError(t, err)
	assert.Equal(t, "AYU-001", got.NamasteCode)
}

func TestFilterSQL(t *testing.T) {
	where, args := Filter{}.sql()
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = Filter{Status: StatusApproved, NamasteCode: "AYU-001"}.sql()
	assert.Equal(t, " WHERE status = $1 AND namaste_code = $2", where)
	assert.Equal(t, []interface{}{"APPROVED", "AYU-001"}, args)
}
