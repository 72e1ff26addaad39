package cli

import (
	"github.com/spf13/pflag"

	"dupindex/internal/domain"
)

// sizeValue is a byte size flag accepting values such as "200 KB" or "1.5GiB".
type sizeValue struct {
	raw   string
	bytes int64
}

var _ pflag.Value = (*sizeValue)(nil)

func (v *sizeValue) String() string {
	return v.raw
}

func (v *sizeValue) Set(s string) error {
	n, err := domain.ParseSize(s)
	if err != nil {
		return err
	}
	v.raw = s
	v.bytes = n
	return nil
}

func (v *sizeValue) Type() string {
	return "size"
}

// IsSet reports whether the flag was given.
func (v *sizeValue) IsSet() bool {
	return v.raw != ""
}
