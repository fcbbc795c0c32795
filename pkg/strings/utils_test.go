package strings_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgstrings "github.com/klwxsrx/event-booking/pkg/strings"
)

func TestParseTypedValue_Int64(t *testing.T) {
	v, err := pkgstrings.ParseTypedValue[int64]("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = pkgstrings.ParseTypedValue[int64]("42.5")
	assert.Error(t, err)
}

func TestParseTypedValue_Time(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		expect time.Time
	}{
		{
			name:   "rfc3339",
			value:  "2024-05-01T10:00:00Z",
			expect: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "date_only",
			value:  "2024-05-01",
			expect: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "unix",
			value:  "0",
			expect: time.Unix(0, 0),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v, err := pkgstrings.ParseTypedValue[time.Time](tc.value)
			require.NoError(t, err)
			assert.True(t, tc.expect.Equal(v))
		})
	}
}

func TestParseTypedValue_ReturnsErrors(t *testing.T) {
	_, err := pkgstrings.ParseTypedValue[uuid.UUID]("not-uuid")
	assert.Error(t, err)

	_, err = pkgstrings.ParseTypedValue[time.Duration]("5 minutes")
	assert.Error(t, err)

	_, err = pkgstrings.ParseTypedValue[complex64]("1")
	assert.Error(t, err)
}
