// Package ptr provides helpers for the optional fields of the catalog documents.
package ptr

// To creates a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to s, or nil when s is blank.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
