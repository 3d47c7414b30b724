package nationbuilder

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"
)

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "RFC3339",
			input: `"2024-01-15T10:30:00Z"`,
			want:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with offset",
			input: `"2024-01-15T10:30:00-05:00"`,
			want:  time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with nanoseconds",
			input: `"2024-01-15T10:30:00.123456789Z"`,
			want:  time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC),
		},
		{
			name:  "space separated with offset",
			input: `"2013-02-21 14:15:45 -0500"`,
			want:  time.Date(2013, 2, 21, 19, 15, 45, 0, time.UTC),
		},
		{
			name:  "without zone",
			input: `"2013-02-21T14:15:45"`,
			want:  time.Date(2013, 2, 21, 14, 15, 45, 0, time.UTC),
		},
		{
			name:  "date only",
			input: `"1985-06-30"`,
			want:  time.Date(1985, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "null",
			input: `null`,
		},
		{
			name:  "empty string",
			input: `""`,
		},
		{
			name:    "invalid timestamp",
			input:   `"not-a-timestamp"`,
			wantErr: true,
		},
		{
			name:    "number",
			input:   `1234567890`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			err := json.Unmarshal([]byte(tt.input), &got)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Time.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("Time.UnmarshalJSON() = %v, want %v", got.Time, tt.want)
			}
		})
	}
}

func TestTime_MarshalJSON(t *testing.T) {
	type doc struct {
		At      Time `json:"at"`
		Omitted Time `json:"omitted,omitzero"`
	}

	data, err := json.Marshal(doc{At: NewTime(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if want := `{"at":"2024-01-15T10:30:00Z"}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	data, err = json.Marshal(doc{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if want := `{"at":null}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestDate(t *testing.T) {
	d := NewDate(1985, time.June, 30)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"1985-06-30"` {
		t.Errorf("Marshal() = %s", data)
	}

	var got Date
	if err := json.Unmarshal([]byte(`"1985-06-30"`), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.Equal(d.Time) {
		t.Errorf("Unmarshal() = %v, want %v", got, d)
	}
	if got.String() != "1985-06-30" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestTime_EncodeValues(t *testing.T) {
	v := url.Values{}

	if err := (Time{}).EncodeValues("updated_since", &v); err != nil {
		t.Fatalf("EncodeValues() error = %v", err)
	}
	if v.Has("updated_since") {
		t.Error("zero time should not be encoded")
	}

	at := NewTime(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	if err := at.EncodeValues("updated_since", &v); err != nil {
		t.Fatalf("EncodeValues() error = %v", err)
	}
	if got := v.Get("updated_since"); got != "2024-03-01T08:00:00Z" {
		t.Errorf("updated_since = %q", got)
	}

	if err := NewDate(1990, time.May, 4).EncodeValues("birthdate", &v); err != nil {
		t.Fatalf("EncodeValues() error = %v", err)
	}
	if got := v.Get("birthdate"); got != "1990-05-04" {
		t.Errorf("birthdate = %q", got)
	}
}
