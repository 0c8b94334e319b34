package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSource implements interfaces.Source for testing
type MockSource struct {
	mock.Mock
	name string
}

func (m *MockSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSource) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) LocationURI() string {
	return "mock:" + m.name
}

func TestMultiSource_Available(t *testing.T) {
	tests := []struct {
		name     string
		sources  []bool
		expected bool
	}{
		{
			name:     "all sources available",
			sources:  []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some sources available",
			sources:  []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no sources available",
			sources:  []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no sources",
			sources:  []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sources []interfaces.Source
			for i, available := range tt.sources {
				mockSource := &MockSource{name: fmt.Sprintf("mock-A%x", i)}
				mockSource.On("Available", mock.Anything).Return(available).Maybe()
				sources = append(sources, mockSource)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiSource(sources, logger)

			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, source := range sources {
				source.(*MockSource).AssertExpectations(t)
			}
		})
	}
}

func TestMultiSource_Fetch(t *testing.T) {
	const fileName = "genesis.blob"
	testData := []byte("genesis bytes")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.Source
		expectedData  []byte
		expectedError error
		anyError      bool
	}{
		{
			name: "first source successful",
			setupMocks: func() []interfaces.Source {
				mock1 := &MockSource{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, fileName).Return(testData, nil)

				// not consulted once the first succeeds
				mock2 := &MockSource{name: "mock-B"}

				return []interfaces.Source{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first source fails, second succeeds",
			setupMocks: func() []interfaces.Source {
				mock1 := &MockSource{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, fileName).Return(nil, testErr)

				mock2 := &MockSource{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, fileName).Return(testData, nil)

				return []interfaces.Source{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "all sources fail",
			setupMocks: func() []interfaces.Source {
				mock1 := &MockSource{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, fileName).Return(nil, testErr)

				mock2 := &MockSource{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, fileName).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.Source{mock1, mock2}
			},
			expectedError: testErr,
			anyError:      true,
		},
		{
			name: "missing everywhere",
			setupMocks: func() []interfaces.Source {
				mock1 := &MockSource{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, fileName).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.Source{mock1}
			},
			expectedError: interfaces.ErrContentNotFound,
			anyError:      true,
		},
		{
			name: "unavailable sources are skipped",
			setupMocks: func() []interfaces.Source {
				mock1 := &MockSource{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockSource{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, fileName).Return(testData, nil)

				return []interfaces.Source{mock1, mock2}
			},
			expectedData: testData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiSource(sources, logger)

			data, err := multi.Fetch(context.Background(), fileName)

			if tt.anyError {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, source := range sources {
				source.(*MockSource).AssertExpectations(t)
			}
		})
	}
}
