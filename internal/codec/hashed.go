package codec

import (
	"encoding/json"
	"fmt"
)

// Hashed is the puzzle tuple handed to clients at session start.
// Latest and Previous are tokens produced by Encode; Date is the
// YYYY-MM-DD day (in the puzzle offset) on which Latest becomes active.
type Hashed struct {
	Num      int    `json:"num"`
	Date     string `json:"date"`
	Latest   string `json:"latest"`
	Previous string `json:"previous"`
}

// EncodeHashed packs the whole tuple into a single token.
func EncodeHashed(h Hashed) string {
	b, _ := json.Marshal(h)
	return Encode(string(b))
}

// DecodeHashed unpacks a token produced by EncodeHashed.
func DecodeHashed(token string) (Hashed, error) {
	var h Hashed
	if err := json.Unmarshal([]byte(Decode(token)), &h); err != nil {
		return Hashed{}, fmt.Errorf("codec: decode hashed: %w", err)
	}
	return h, nil
}
