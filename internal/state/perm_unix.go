//go:build !windows

package state

import "os"

// restrictOwnerOnly tightens the password file to 0600. WriteFile honors the
// mode only on creation; an existing file keeps whatever it had.
func restrictOwnerOnly(path string) error {
	return os.Chmod(path, 0o600)
}
