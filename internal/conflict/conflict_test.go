package conflict

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageops/reserva/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestOverlapsHalfOpen(t *testing.T) {
	// Existing booking [10th, 15th).
	s, e := day("2024-01-10"), day("2024-01-15")

	// Starts exactly when the other ends: free.
	assert.False(t, Overlaps(day("2024-01-15"), day("2024-01-18"), s, e))
	// Ends exactly when the other starts: free.
	assert.False(t, Overlaps(day("2024-01-05"), day("2024-01-10"), s, e))
	// Straddles the tail: conflict.
	assert.True(t, Overlaps(day("2024-01-14"), day("2024-01-16"), s, e))
	// Fully contained: conflict.
	assert.True(t, Overlaps(day("2024-01-11"), day("2024-01-12"), s, e))
	// Fully containing: conflict.
	assert.True(t, Overlaps(day("2024-01-01"), day("2024-01-31"), s, e))
	// Disjoint: free.
	assert.False(t, Overlaps(day("2024-02-01"), day("2024-02-05"), s, e))
}

func resources() []domain.Resource {
	return []domain.Resource{
		{ID: "car-a", Name: "Car-A"},
		{ID: "car-b", Name: "Car-B"},
		{ID: "van-1", Name: "Transporter Van"},
	}
}

func TestMatchResourceExact(t *testing.T) {
	r, err := MatchResource(resources(), "  car-a ")
	require.NoError(t, err)
	assert.Equal(t, "car-a", r.ID)
}

func TestMatchResourceSubstringFallback(t *testing.T) {
	r, err := MatchResource(resources(), "transporter")
	require.NoError(t, err)
	assert.Equal(t, "van-1", r.ID)
}

func TestMatchResourceAmbiguous(t *testing.T) {
	_, err := MatchResource(resources(), "car")
	var amb *domain.AmbiguousMatchError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, []string{"Car-A", "Car-B"}, amb.Candidates)
}

func TestMatchResourceNotFound(t *testing.T) {
	_, err := MatchResource(resources(), "boat")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestMatchResourceEmptyName(t *testing.T) {
	_, err := MatchResource(resources(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
