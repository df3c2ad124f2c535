// Package mocks provides gomock implementations of the collector's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockDisclosureRepository(ctrl)
//	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.PutCreated, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=disclosure_repository_mock.go github.com/target/disclosure-collector/internal/core DisclosureRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_status_repository_mock.go github.com/target/disclosure-collector/internal/core JobStatusRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=object_store_mock.go github.com/target/disclosure-collector/internal/core ObjectStore

// Worker transport and the worker itself.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=worker_invoker_mock.go github.com/target/disclosure-collector/internal/core WorkerInvoker
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=worker_mock.go github.com/target/disclosure-collector/internal/core Worker
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=disclosure_feed_mock.go github.com/target/disclosure-collector/internal/core DisclosureFeed

// Credential resolution.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=secret_resolver_mock.go github.com/target/disclosure-collector/internal/core SecretResolver
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_cache_mock.go github.com/target/disclosure-collector/internal/core CredentialCache
