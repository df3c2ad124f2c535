package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/mocks"
)

func newTestJobStatusService(t *testing.T, repo core.JobStatusRepository) *JobStatusService {
	t.Helper()
	svc, err := NewJobStatusService(JobStatusServiceOptions{Repo: repo, Retry: fastPolicy(2)})
	require.NoError(t, err)
	return svc
}

func TestNewJobStatusService_RequiredDependency(t *testing.T) {
	svc, err := NewJobStatusService(JobStatusServiceOptions{})

	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "JobStatusRepository is required")
}

func TestJobStatusService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)
	job := model.NewJob("collect_1705224600000_0a1b2c3d", model.JobKindCollect, model.JobParams{}, t0)

	repo.EXPECT().Create(gomock.Any(), job).Return(nil).Times(1)

	require.NoError(t, svc.Create(context.Background(), job))
}

func TestJobStatusService_Create_InvalidJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)

	job := model.NewJob("", model.JobKindCollect, model.JobParams{}, t0)
	err := svc.Create(context.Background(), job)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobStatusService_Create_RetriedCreateThatLanded(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)
	job := model.NewJob("collect_1705224600000_0a1b2c3d", model.JobKindCollect, model.JobParams{}, t0)

	gomock.InOrder(
		repo.EXPECT().Create(gomock.Any(), job).Return(apperrors.Unavailable(assert.AnError, "connection reset")),
		repo.EXPECT().Create(gomock.Any(), job).Return(apperrors.Conflict("job already exists")),
		repo.EXPECT().Get(gomock.Any(), job.JobID).Return(job, nil),
	)

	require.NoError(t, svc.Create(context.Background(), job))
}

func TestJobStatusService_Create_ConflictOnFirstAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)
	job := model.NewJob("collect_1705224600000_0a1b2c3d", model.JobKindCollect, model.JobParams{}, t0)

	repo.EXPECT().Create(gomock.Any(), job).Return(apperrors.Conflict("job already exists")).Times(1)

	err := svc.Create(context.Background(), job)
	assert.True(t, apperrors.IsConflict(err))
}

func TestJobStatusService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)

	u := model.JobUpdate{Status: model.StatusPtr(model.JobStatusRunning), Progress: model.IntPtr(40)}
	stored := model.NewJob("collect_1", model.JobKindCollect, model.JobParams{}, t0)
	stored.Status = model.JobStatusRunning
	stored.Progress = 40

	gomock.InOrder(
		repo.EXPECT().Update(gomock.Any(), "collect_1", u).Return(nil, errThrottled()),
		repo.EXPECT().Update(gomock.Any(), "collect_1", u).Return(stored, nil),
	)

	got, err := svc.Update(context.Background(), "collect_1", u)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
}

func TestJobStatusService_Update_TerminalJobIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)

	repo.EXPECT().Update(gomock.Any(), "collect_1", gomock.Any()).
		Return(nil, apperrors.Conflict("job collect_1 is in a terminal state")).Times(1)

	_, err := svc.Update(context.Background(), "collect_1", model.JobUpdate{Progress: model.IntPtr(50)})
	assert.True(t, apperrors.IsConflict(err))
}

func TestJobStatusService_Get_UnknownID(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)

	repo.EXPECT().Get(gomock.Any(), "collect_404").Return(nil, apperrors.NotFoundf("job %s not found", "collect_404")).Times(1)

	_, err := svc.Get(context.Background(), "collect_404")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Get(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobStatusService_GetKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobStatusRepository(ctrl)
	svc := newTestJobStatusService(t, repo)
	job := model.NewJob("collect_1", model.JobKindCollect, model.JobParams{}, t0)

	repo.EXPECT().Get(gomock.Any(), "collect_1").Return(job, nil).Times(2)

	got, err := svc.GetKind(context.Background(), "collect_1", model.JobKindCollect)
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = svc.GetKind(context.Background(), "collect_1", model.JobKindExport)
	assert.True(t, apperrors.IsNotFound(err))
}
