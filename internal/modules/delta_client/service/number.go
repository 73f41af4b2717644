package service

import (
	"bytes"
	"fmt"
	"strconv"
)

// flexFloat accepts both 123.4 and "123.4"; Delta mixes the two.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		b = bytes.Trim(b, `"`)
		if len(b) == 0 {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("number %q: %w", string(b), err)
	}
	*f = flexFloat(v)
	return nil
}
