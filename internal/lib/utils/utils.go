// Package utils contains small helpers that belong to no specific domain.
package utils

import (
	"encoding/json"
	"io"
)

// PrintJSON writes v to w as tab-indented JSON.
func PrintJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")
	return encoder.Encode(v)
}
