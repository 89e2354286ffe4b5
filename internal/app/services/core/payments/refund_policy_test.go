package payments

import (
	"testing"
	"time"

	"carelink-service/internal/pkg/constvars"

	"github.com/stretchr/testify/assert"
)

func TestRefundAmount_PatientTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		fee      float64
		start    time.Time
		expected float64
	}{
		{
			name:     "more than 24 hours before start refunds everything",
			fee:      1000,
			start:    now.Add(25 * time.Hour),
			expected: 1000,
		},
		{
			name:     "exactly 24 hours falls into the half tier",
			fee:      1000,
			start:    now.Add(24 * time.Hour),
			expected: 500,
		},
		{
			name:     "between 6 and 24 hours refunds half",
			fee:      1000,
			start:    now.Add(12 * time.Hour),
			expected: 500,
		},
		{
			name:     "half tier rounds up on odd fees",
			fee:      999,
			start:    now.Add(12 * time.Hour),
			expected: 500,
		},
		{
			name:     "exactly 6 hours refunds nothing",
			fee:      1000,
			start:    now.Add(6 * time.Hour),
			expected: 0,
		},
		{
			name:     "under 6 hours refunds nothing",
			fee:      1000,
			start:    now.Add(2 * time.Hour),
			expected: 0,
		},
		{
			name:     "appointment already started refunds nothing",
			fee:      1000,
			start:    now.Add(-1 * time.Hour),
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amount := RefundAmount(constvars.RolePatient, tc.fee, tc.start, now)
			assert.Equal(t, tc.expected, amount)
		})
	}
}

func TestRefundAmount_DoctorAlwaysRefundsInFull(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	starts := []time.Time{
		now.Add(48 * time.Hour),
		now.Add(12 * time.Hour),
		now.Add(30 * time.Minute),
	}
	for _, start := range starts {
		amount := RefundAmount(constvars.RoleDoctor, 750, start, now)
		assert.Equal(t, float64(750), amount)
	}
}
