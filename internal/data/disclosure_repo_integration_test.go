package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/testutil"
)

func TestDisclosureRepo_Insert_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := NewDisclosureRepo(db)
	ctx := context.Background()

	day := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	d := testutil.NewFeedItem("rec-1", day).Disclosure("collect_1_aaaaaaaa")

	first, err := repo.Insert(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, model.PutCreated, first)

	second, err := repo.Insert(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, model.PutAlreadyExists, second)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM disclosures WHERE record_id = $1`, "rec-1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDisclosureRepo_Insert_ConcurrentProducers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := NewDisclosureRepo(db)
	ctx := context.Background()

	d := testutil.NewFeedItem("rec-race", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)).Disclosure("job")

	const producers = 8
	results := make([]model.PutResult, producers)
	errs := make([]error, producers)
	var wg sync.WaitGroup
	for i := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = repo.Insert(ctx, d)
		}()
	}
	wg.Wait()

	created := 0
	for i := range producers {
		require.NoError(t, errs[i])
		if results[i] == model.PutCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestDisclosureRepo_GetAndAttach(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := NewDisclosureRepo(db)
	ctx := context.Background()

	d := testutil.NewFeedItem("rec-2", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)).Disclosure("job")
	_, err := repo.Insert(ctx, d)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "rec-2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", got.DateKey)
	assert.Nil(t, got.StorageKey)

	attached, err := repo.AttachStorageKey(ctx, "rec-2", d.DocumentKey())
	require.NoError(t, err)
	assert.True(t, attached)

	attached, err = repo.AttachStorageKey(ctx, "rec-2", "other/key.pdf")
	require.NoError(t, err)
	assert.False(t, attached, "storage key is written once")

	got, err = repo.GetByID(ctx, "rec-2")
	require.NoError(t, err)
	require.NotNil(t, got.StorageKey)
	assert.Equal(t, d.DocumentKey(), *got.StorageKey)

	_, err = repo.AttachStorageKey(ctx, "missing", "k")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDisclosureRepo_ListByDateRange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	repo := NewDisclosureRepo(db)
	ctx := context.Background()

	for i, day := range []int{7, 8, 9, 10} {
		b := testutil.NewFeedItem("rec-"+string(rune('a'+i)), time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC))
		if day == 9 {
			b.WithCompany("7203")
		}
		_, err := repo.Insert(ctx, b.Disclosure("job"))
		require.NoError(t, err)
	}

	r := model.DateRange{
		Start: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
	}

	all, err := repo.ListByDateRange(ctx, model.DisclosureQuery{Range: r})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-01-08", all[0].DateKey)
	assert.Equal(t, "2024-01-09", all[1].DateKey)

	filtered, err := repo.ListByDateRange(ctx, model.DisclosureQuery{Range: r, CompanyCode: "7203"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "rec-c", filtered[0].RecordID)
}
