package reconcile

import (
	"strings"
	"time"
)

const capturedDateLayout = "2006-01-02"

// submitTimeLayouts — форматы capture_submit_time. Время без зоны считается UTC.
var submitTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseSubmitTime разбирает capture_submit_time. Пустое или
// неразборчивое значение — nil (время отправки неизвестно).
func ParseSubmitTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range submitTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ReceivedAt сводит неточную дату списания (captured_date) и точное, но
// необязательное время отправки на списание в один момент received_at.
//
// ok == false: дата списания отсутствует или не разбирается, списание ещё
// не окончательно и платёж переводить рано.
//
// Если дата опорного момента (submitTime, либо now при его отсутствии) в UTC
// совпадает с capturedDate, возвращается сам опорный момент. Если она раньше,
// возвращается начало capturedDate, если позже — последняя микросекунда capturedDate.
func ReceivedAt(submitTime *time.Time, capturedDate string, now time.Time) (time.Time, bool) {
	date, err := time.Parse(capturedDateLayout, strings.TrimSpace(capturedDate))
	if err != nil {
		return time.Time{}, false
	}

	ref := now
	if submitTime != nil {
		ref = *submitTime
	}
	ref = ref.UTC()

	refDate := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case refDate.Equal(date):
		return ref, true
	case refDate.Before(date):
		return date, true
	default:
		return date.Add(24*time.Hour - time.Microsecond), true
	}
}
