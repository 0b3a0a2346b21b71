package piece

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) LoadPiece(ctx context.Context, name, version string) (*Metadata, error) {
	args := m.Called(ctx, name, version)
	md, _ := args.Get(0).(*Metadata)
	return md, args.Error(1)
}

func slackMetadata() *Metadata {
	return &Metadata{
		Name:    "slack",
		Version: "1.0.0",
		Actions: map[string]Action{
			"send_message": {Name: "send_message", Props: Properties{
				{Name: "text", Property: Property{Type: LongText, Required: true}},
			}},
		},
	}
}

func TestCatalog(t *testing.T) {
	ref := ActionRef{PieceName: "slack", PieceVersion: "1.0.0", ActionName: "send_message"}

	t.Run("Should load once and serve later lookups from cache", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(slackMetadata(), nil).Once()
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		for range 3 {
			action, err := catalog.GetActionOrThrow(t.Context(), ref)
			require.NoError(t, err)
			assert.Equal(t, "send_message", action.Name)
		}
		assert.Equal(t, 1, catalog.Len())
		source.AssertExpectations(t)
	})

	t.Run("Should reload after refresh", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(slackMetadata(), nil).Twice()
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		_, err = catalog.GetActionOrThrow(t.Context(), ref)
		require.NoError(t, err)
		catalog.Refresh(t.Context())
		assert.Equal(t, 0, catalog.Len())
		_, err = catalog.GetActionOrThrow(t.Context(), ref)
		require.NoError(t, err)
		source.AssertExpectations(t)
	})

	t.Run("Should report ActionNotFound for unknown actions", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(slackMetadata(), nil)
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		_, err = catalog.GetActionOrThrow(t.Context(), ActionRef{PieceName: "slack", PieceVersion: "1.0.0", ActionName: "nope"})
		assert.True(t, core.HasCode(err, core.ErrCodeActionNotFound))
	})

	t.Run("Should report ActionNotFound when the piece is unknown", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "ghost", "0.1.0").Return(nil, nil)
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		_, err = catalog.GetActionOrThrow(t.Context(), ActionRef{PieceName: "ghost", PieceVersion: "0.1.0", ActionName: "x"})
		assert.True(t, core.HasCode(err, core.ErrCodeActionNotFound))
	})

	t.Run("Should propagate source failures without caching them", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(nil, errors.New("registry down")).Once()
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(slackMetadata(), nil).Once()
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		_, err = catalog.GetActionOrThrow(t.Context(), ref)
		assert.ErrorContains(t, err, "registry down")
		_, err = catalog.GetActionOrThrow(t.Context(), ref)
		require.NoError(t, err)
	})

	t.Run("Should serve concurrent lookups", func(t *testing.T) {
		source := &MockMetadataSource{}
		source.On("LoadPiece", mock.Anything, "slack", "1.0.0").Return(slackMetadata(), nil)
		catalog, err := NewCatalog(source, 4)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := catalog.GetActionOrThrow(context.Background(), ref)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, catalog.Len())
	})

	t.Run("Should require a source", func(t *testing.T) {
		_, err := NewCatalog(nil, 1)
		assert.True(t, core.HasCode(err, core.ErrCodeInvalidConfig))
	})
}
