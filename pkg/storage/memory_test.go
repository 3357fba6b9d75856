package storage_test

import (
	"testing"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/absmach/roadlens/pkg/storage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository(t *testing.T) {
	testutil.RunRepositoryTests(t, func(*testing.T) annotation.Repository {
		return storage.NewInMemoryRepository()
	})
}

func TestNewRepositories(t *testing.T) {
	repos, err := storage.NewRepositories(storage.Config{Type: storage.Memory})
	require.NoError(t, err)
	assert.NotNil(t, repos.Annotations)
	assert.Nil(t, repos.Closer)

	_, err = storage.NewRepositories(storage.Config{Type: "mongo"})
	assert.Error(t, err)
}
