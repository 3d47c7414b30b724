package nationbuilder

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// DateLayout is the format of date-only fields like birthdates.
const DateLayout = time.DateOnly

// timeLayouts are the formats the API uses for timestamps, most common first.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// parseTime parses s with the first matching layout of [timeLayouts].
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

// unmarshalTime decodes a JSON string into a time. null and "" yield the zero time.
func unmarshalTime(data []byte) (time.Time, error) {
	if string(data) == "null" || string(data) == `""` {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, err
	}

	return parseTime(s)
}

// Time supports marshalling times in the formats used by the NationBuilder API.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (m *Time) UnmarshalJSON(data []byte) error {
	t, err := unmarshalTime(data)
	if err != nil {
		return err
	}

	m.Time = t
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// The zero time is encoded as null.
func (m Time) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(m.Format(time.RFC3339))
}

// EncodeValues implements the query.Encoder interface.
func (m Time) EncodeValues(key string, v *url.Values) error {
	if m.IsZero() {
		return nil
	}

	v.Set(key, m.Format(time.RFC3339))
	return nil
}

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// NewDate returns the date of the given day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (d *Date) UnmarshalJSON(data []byte) error {
	t, err := unmarshalTime(data)
	if err != nil {
		return err
	}

	d.Time = t
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(d.Format(DateLayout))
}

// EncodeValues implements the query.Encoder interface.
func (d Date) EncodeValues(key string, v *url.Values) error {
	if d.IsZero() {
		return nil
	}

	v.Set(key, d.Format(DateLayout))
	return nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}
