package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	"github.com/target/disclosure-collector/internal/domain/outcome"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/mocks"
)

func newTestRecordStore(t *testing.T, repo core.DisclosureRepository) *RecordStore {
	t.Helper()
	svc, err := NewRecordStore(RecordStoreOptions{Repo: repo, Retry: fastPolicy(3)})
	require.NoError(t, err)
	return svc
}

func TestNewRecordStore_RequiredDependency(t *testing.T) {
	svc, err := NewRecordStore(RecordStoreOptions{})

	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "DisclosureRepository is required")
}

func TestRecordStore_Put_Created(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)
	d := testDisclosure("E001")

	repo.EXPECT().Insert(gomock.Any(), d).Return(model.PutCreated, nil).Times(1)

	res, err := svc.Put(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, model.PutCreated, res)
}

func TestRecordStore_Put_DuplicateIsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	logger, logs := newTestLogger()
	svc, err := NewRecordStore(RecordStoreOptions{Repo: repo, Logger: logger})
	require.NoError(t, err)
	d := testDisclosure("E001")

	repo.EXPECT().Insert(gomock.Any(), d).Return(model.PutAlreadyExists, nil).Times(1)

	res, err := svc.Put(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, model.PutAlreadyExists, res)

	lines := logs.Lines("disclosure already exists")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"WARN"`)
	assert.Contains(t, lines[0], `"record_id":"E001"`)
}

func TestRecordStore_Put_ConflictTreatedAsDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
		Return(model.PutResult(0), apperrors.Conflict("duplicate key")).Times(1)

	res, err := svc.Put(context.Background(), testDisclosure("E001"))
	require.NoError(t, err)
	assert.Equal(t, model.PutAlreadyExists, res)
}

func TestRecordStore_Put_RetriesThrottling(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	gomock.InOrder(
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutResult(0), errThrottled()),
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutResult(0), errThrottled()),
		repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutCreated, nil),
	)

	res, err := svc.Put(context.Background(), testDisclosure("E001"))
	require.NoError(t, err)
	assert.Equal(t, model.PutCreated, res)
}

func TestRecordStore_Put_NonRetryableErrorPropagatesAfterOneAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)
	repoErr := errors.New("permission denied")

	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutResult(0), repoErr).Times(1)

	_, err := svc.Put(context.Background(), testDisclosure("E001"))
	assert.Same(t, repoErr, err)
}

func TestRecordStore_Put_ExhaustedRetriesReturnLastError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)
	last := errThrottled()

	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutResult(0), errThrottled()).Times(3)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutResult(0), last).Times(1)

	_, err := svc.Put(context.Background(), testDisclosure("E001"))
	assert.Same(t, last, err)
}

func TestRecordStore_Put_InvalidRecordNeverReachesStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	d := testDisclosure("E001")
	d.DateKey = "2024-01-11"

	_, err := svc.Put(context.Background(), d)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Put(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecordStore_PutMany_DuplicatesAreNotFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	records := make([]*model.Disclosure, 0, 155)
	for i := range 155 {
		records = append(records, testDisclosure(fmt.Sprintf("E%03d", i)))
	}
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *model.Disclosure) (model.PutResult, error) {
			var n int
			_, _ = fmt.Sscanf(d.RecordID, "E%03d", &n)
			if n >= 150 {
				return model.PutAlreadyExists, nil
			}
			return model.PutCreated, nil
		}).Times(155)

	res := svc.PutMany(context.Background(), records)

	assert.Equal(t, 150, res.Created)
	assert.Equal(t, 5, res.Duplicates)
	assert.Equal(t, outcome.Summary{Status: outcome.StatusSuccess, Collected: 150, Failed: 0}, res.Summary())
}

func TestRecordStore_PutMany_FailureDoesNotAbortSiblings(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc, err := NewRecordStore(RecordStoreOptions{Repo: repo, Retry: fastPolicy(0), Concurrency: 2})
	require.NoError(t, err)

	var calls atomic.Int32
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *model.Disclosure) (model.PutResult, error) {
			calls.Add(1)
			if d.RecordID == "E001" {
				return 0, errors.New("write failed")
			}
			return model.PutCreated, nil
		}).Times(4)

	records := []*model.Disclosure{
		testDisclosure("E000"), testDisclosure("E001"), testDisclosure("E002"), testDisclosure("E003"),
	}
	res := svc.PutMany(context.Background(), records)

	assert.EqualValues(t, 4, calls.Load())
	require.Len(t, res.Settled, 4)
	assert.Equal(t, "E001", res.Settled[1].Key)
	assert.False(t, res.Settled[1].OK())
	assert.Equal(t, outcome.Summary{Status: outcome.StatusPartialSuccess, Collected: 3, Failed: 1}, res.Summary())
}

func TestRecordStore_AttachStorageKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	gomock.InOrder(
		repo.EXPECT().AttachStorageKey(gomock.Any(), "E001", "disclosures/2024-01-10/E001.pdf").Return(false, errThrottled()),
		repo.EXPECT().AttachStorageKey(gomock.Any(), "E001", "disclosures/2024-01-10/E001.pdf").Return(true, nil),
	)

	ok, err := svc.AttachStorageKey(context.Background(), "E001", "disclosures/2024-01-10/E001.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.AttachStorageKey(context.Background(), "E001", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecordStore_Get_NotFoundIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	repo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, apperrors.NotFound("disclosure missing not found")).Times(1)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecordStore_ListByDateRange_RejectsInvertedRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDisclosureRepository(ctrl)
	svc := newTestRecordStore(t, repo)

	q := model.DisclosureQuery{Range: model.DateRange{Start: t0, End: t0.AddDate(0, 0, -1)}}
	_, err := svc.ListByDateRange(context.Background(), q)
	assert.True(t, apperrors.IsValidation(err))
}
