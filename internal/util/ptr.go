package util

func StringPtr(v string) *string {
	return &v
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func Deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

// NonEmpty returns nil for the empty string.
func NonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
