package service

import (
	"bytes"
	"context"
	"io"

	"github.com/wb-go/wbf/retry"

	"photomark/internal/model"
)

// MOCK JOB REPOSITORY

type mockRepo struct {
	createFn       func(ctx context.Context, j *model.Job) error
	getFn          func(ctx context.Context, id string) (*model.Job, error)
	getListFn      func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	deleteFn       func(ctx context.Context, id string) error
	updateStatusFn func(ctx context.Context, id string, st model.Status) error
	saveResultFn   func(ctx context.Context, j *model.Job) error
	fetchOrphansFn func(ctx context.Context, limit int) ([]string, error)
}

func (m *mockRepo) Create(ctx context.Context, j *model.Job) error {
	return m.createFn(ctx, j)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateStatusFn(ctx, id, st)
}

func (m *mockRepo) SaveResult(ctx context.Context, j *model.Job) error {
	return m.saveResultFn(ctx, j)
}

func (m *mockRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	return m.fetchOrphansFn(ctx, limit)
}

// MOCK TEMPLATE REPOSITORY

type mockTplRepo struct {
	saveFn    func(ctx context.Context, t *model.Template) error
	getFn     func(ctx context.Context, name string) (*model.Template, error)
	getListFn func(ctx context.Context) ([]model.Template, error)
	deleteFn  func(ctx context.Context, name string) error
}

func (m *mockTplRepo) Save(ctx context.Context, t *model.Template) error {
	return m.saveFn(ctx, t)
}

func (m *mockTplRepo) Get(ctx context.Context, name string) (*model.Template, error) {
	return m.getFn(ctx, name)
}

func (m *mockTplRepo) GetList(ctx context.Context) ([]model.Template, error) {
	return m.getListFn(ctx)
}

func (m *mockTplRepo) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

// MOCK STORAGE

type mockStorage struct {
	putFn          func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	getFn          func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn       func(ctx context.Context, key string) error
	deletePrefixFn func(ctx context.Context, prefix string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFn(ctx, key)
}

func (m *mockStorage) DeletePrefix(ctx context.Context, prefix string) error {
	return m.deletePrefixFn(ctx, prefix)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK for multipart.File
type fakeMultipartFile struct {
	*bytes.Reader
}

func (f *fakeMultipartFile) Close() error {
	return nil
}
