package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}

func TestReceivedAt(t *testing.T) {
	now := mustTime(t, "2016-10-28T12:45:22Z")

	tests := []struct {
		name         string
		submitTime   string
		capturedDate string
		now          time.Time
		want         string
	}{
		{
			name:         "дата совпадает — время отправки без изменений",
			submitTime:   "2016-10-28T14:57:05Z",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T14:57:05Z",
		},
		{
			name:         "списание на следующий день — полночь даты списания",
			submitTime:   "2016-10-27T23:57:05Z",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T00:00:00Z",
		},
		{
			name:         "время отправки не в UTC",
			submitTime:   "2016-10-28T00:57:05+01:00",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T00:00:00Z",
		},
		{
			name:         "время отправки позже даты — конец дня списания",
			submitTime:   "2016-10-29T00:10:00Z",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T23:59:59.999999Z",
		},
		{
			name:         "нет времени отправки, now в тот же день",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T12:45:22Z",
		},
		{
			name:         "нет времени отправки, now на следующий день",
			capturedDate: "2016-10-28",
			now:          mustTime(t, "2016-10-29T00:05:22Z"),
			want:         "2016-10-28T23:59:59.999999Z",
		},
		{
			name:         "нет времени отправки, now раньше даты",
			capturedDate: "2016-10-28",
			now:          mustTime(t, "2016-10-27T22:00:00Z"),
			want:         "2016-10-28T00:00:00Z",
		},
		{
			name:         "неразборчивое время отправки считается отсутствующим",
			submitTime:   "вчера",
			capturedDate: "2016-10-28",
			now:          now,
			want:         "2016-10-28T12:45:22Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReceivedAt(ParseSubmitTime(tt.submitTime), tt.capturedDate, tt.now)

			require.True(t, ok)
			assert.True(t, mustTime(t, tt.want).Equal(got), "получено %s", got.Format(time.RFC3339Nano))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestReceivedAt_NoCapturedDate(t *testing.T) {
	submit := mustTime(t, "2016-10-28T14:57:05Z")
	now := mustTime(t, "2016-10-28T15:00:00Z")

	for _, date := range []string{"", "   ", "28/10/2016", "2016-13-45", "not a date"} {
		t.Run("дата "+date, func(t *testing.T) {
			_, ok := ReceivedAt(&submit, date, now)
			assert.False(t, ok)

			_, ok = ReceivedAt(nil, date, now)
			assert.False(t, ok)
		})
	}
}

func TestParseSubmitTime(t *testing.T) {
	assert.Nil(t, ParseSubmitTime(""))
	assert.Nil(t, ParseSubmitTime("garbage"))

	naive := ParseSubmitTime("2016-10-28T14:57:05")
	require.NotNil(t, naive)
	assert.True(t, mustTime(t, "2016-10-28T14:57:05Z").Equal(*naive), "время без зоны — UTC")

	withZone := ParseSubmitTime("2016-10-28T00:57:05.123+01:00")
	require.NotNil(t, withZone)
	assert.Equal(t, 27, withZone.UTC().Day())
}
