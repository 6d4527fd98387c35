package screening

import (
	"encoding/json"

	"github.com/ppk/screening/pkg/textnorm"
)

// encodeList renders a string list as a JSON array. A nil list is stored as
// an empty array.
func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList reads a stored list column. Unrecognized shapes read as empty.
func decodeList(raw []byte) []string {
	return textnorm.CleanStringArray(textnorm.ToValues(raw))
}
