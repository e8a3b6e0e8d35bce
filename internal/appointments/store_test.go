package appointments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "appointments.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	return s, path
}

func TestNewFileStoreCreatesEmptyArray(t *testing.T) {
	_, path := newStore(t)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)

	saved, err := s.Save(ctx, model.Appointment{Doctor: " Dr. Ahmed ", Patient: "Omar", Date: "2025-08-29", Time: "10:00"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, "Dr. Ahmed", saved.Doctor)

	_, err = s.Save(ctx, model.Appointment{Doctor: "Dr. Sara", Patient: "Fatima", Date: "2025-08-29", Time: "09:30"})
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Omar", all[0].Patient)

	filtered, err := s.List(ctx, "dr. sara")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Fatima", filtered[0].Patient)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {\n    \"id\"")
}

func TestSaveValidates(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Save(context.Background(), model.Appointment{Doctor: "Dr. Ahmed", Date: "2025-08-29", Time: "10:00"})
	require.Error(t, err)
	assert.Equal(t, 400, errx.StatusOf(err))
}

func TestCorruptFileIsTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Save(ctx, model.Appointment{Doctor: "Dr. Kamal", Patient: "John", Date: "2025-08-29", Time: "14:00"})
	require.NoError(t, err)
	all, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentSavesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(ctx, model.Appointment{Doctor: "Dr. Ahmed", Patient: fmt.Sprintf("p%d", i), Date: "2025-08-29", Time: "10:00"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	seed := []model.Appointment{{ID: "1", Doctor: "Dr. Ahmed", Patient: "Omar", Date: "2025-08-28", Time: "10:00"}}

	n, err := s.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
