// Package mock provides testify mocks for the storage and report
// repository interfaces.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

// Put mocks the Put method.
func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader) error {
	args := m.Called(ctx, key, r)
	return args.Error(0)
}

// PutFile mocks the PutFile method.
func (m *MockStorage) PutFile(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Fetch mocks the Fetch method.
func (m *MockStorage) Fetch(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// URL mocks the URL method.
func (m *MockStorage) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectPut sets up an expectation for Put.
func (m *MockStorage) ExpectPut(key string, err error) *mock.Call {
	return m.On("Put", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectFetch sets up an expectation for Fetch.
func (m *MockStorage) ExpectFetch(key string, err error) *mock.Call {
	return m.On("Fetch", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectExists sets up an expectation for Exists.
func (m *MockStorage) ExpectExists(key string, exists bool, err error) *mock.Call {
	return m.On("Exists", mock.Anything, key).Return(exists, err)
}

// ExpectURL sets up an expectation for URL.
func (m *MockStorage) ExpectURL(key, url string) *mock.Call {
	return m.On("URL", key).Return(url)
}
