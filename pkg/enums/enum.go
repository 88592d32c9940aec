package enums

import (
	"fmt"
	"slices"
)

// parse returns the member of values spelled raw; kind names the enum in the
// error.
func parse[T ~string](values []T, raw, kind string) (T, error) {
	if i := slices.Index(values, T(raw)); i >= 0 {
		return values[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

// decodeText is the shared UnmarshalText body for enums that reject unknown
// members at the JSON boundary.
func decodeText[T ~string](dst *T, values []T, text []byte, kind string) error {
	parsed, err := parse(values, string(text), kind)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}
