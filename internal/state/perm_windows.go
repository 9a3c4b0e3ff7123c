//go:build windows

package state

// restrictOwnerOnly is a no-op on Windows; plain overwrite semantics apply.
func restrictOwnerOnly(string) error { return nil }
