package nationbuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the numeric identifier of a resource.
// The API sends ids as numbers, but some fields arrive quoted or empty.
type ID int64

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", data, err)
	}

	*id = ID(n)
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(id))
}

// String returns the decimal representation of id.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
