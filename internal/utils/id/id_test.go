package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Sortable(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, New(now))
	}

	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := Time(New(now))
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
