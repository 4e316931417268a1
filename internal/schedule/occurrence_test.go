package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
)

func newRule(timeOfDay string, weekdays ...int) *model.Schedule {
	return &model.Schedule{
		TimeOfDay: timeOfDay,
		Weekdays:  model.Weekdays(weekdays),
	}
}

func TestNextOccurrence(t *testing.T) {
	// 2026-08-31 是周一
	monday := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rule      *model.Schedule
		reference time.Time
		want      time.Time
	}{
		{
			name:      "later same day",
			rule:      newRule("08:00", 1),
			reference: monday,
			want:      time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "time already passed rolls to next allowed day",
			rule:      newRule("08:00", 1, 3),
			reference: monday.Add(2 * time.Hour), // 周一 09:00
			want:      time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekday scan skips disallowed days",
			rule:      newRule("08:00", 5), // 仅周五
			reference: monday,
			want:      time.Date(2026, 9, 4, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekday rule from saturday rolls to monday",
			rule:      newRule("08:00", 1, 2, 3, 4, 5),
			reference: time.Date(2026, 9, 5, 8, 0, 0, 0, time.UTC), // 周六 08:00
			want:      time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "exact boundary is not an occurrence",
			rule:      newRule("08:00", 1),
			reference: time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
			want:      time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "every day rule crosses week boundary",
			rule:      newRule("00:30", 0, 1, 2, 3, 4, 5, 6),
			reference: time.Date(2026, 9, 5, 23, 59, 0, 0, time.UTC), // 周六深夜
			want:      time.Date(2026, 9, 6, 0, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.rule, tt.reference)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.reference))
			assert.True(t, tt.rule.Weekdays.Contains(got.Weekday()))

			// 纯函数：重复调用结果一致
			again, err := NextOccurrence(tt.rule, tt.reference)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNextOccurrenceInvalidRule(t *testing.T) {
	monday := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)

	_, err := NextOccurrence(newRule("08:00"), monday)
	assert.ErrorIs(t, err, pkgerrors.InvalidRule)

	_, err = NextOccurrence(newRule("25:99", 1), monday)
	assert.ErrorIs(t, err, pkgerrors.InvalidRule)
}

func TestNextOccurrencePreservesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	reference := time.Date(2026, 8, 31, 9, 0, 0, 0, loc)

	got, err := NextOccurrence(newRule("08:00", 2), reference)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, time.Date(2026, 9, 1, 8, 0, 0, 0, loc), got)
}
