package domain

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human readable byte size such as "200 KB" or "1 MiB".
// Sizes past the int64 range are clamped to math.MaxInt64.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidSize, s, err)
	}
	if n > math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(n), nil
}
