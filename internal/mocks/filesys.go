package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/H1Skaak/g3/internal/filesys"
)

var _ filesys.ReadFS = (*MockFS)(nil)

// MockFS is a testify/mock implementation of filesys.ReadFS.
type MockFS struct {
	mock.Mock
}

// ReadFile mocks the ReadFile method.
func (m *MockFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}
