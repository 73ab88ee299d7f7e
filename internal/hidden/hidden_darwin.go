//go:build darwin

package hidden

import (
	"os"

	"golang.org/x/sys/unix"
)

type osAttribute struct{}

// OS returns the Attribute backed by the BSD UF_HIDDEN flag.
func OS() Attribute {
	return osAttribute{}
}

func flags(path string) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return st.Flags, nil
}

func (osAttribute) Hide(path string) error {
	f, err := flags(path)
	if err != nil {
		return err
	}
	if f&unix.UF_HIDDEN != 0 {
		return nil
	}
	if err := unix.Chflags(path, int(f|unix.UF_HIDDEN)); err != nil {
		return &os.PathError{Op: "chflags", Path: path, Err: err}
	}
	return nil
}

func (osAttribute) Unhide(path string) error {
	f, err := flags(path)
	if err != nil {
		return err
	}
	if f&unix.UF_HIDDEN == 0 {
		return nil
	}
	if err := unix.Chflags(path, int(f&^unix.UF_HIDDEN)); err != nil {
		return &os.PathError{Op: "chflags", Path: path, Err: err}
	}
	return nil
}

func (osAttribute) IsHidden(path string) (bool, error) {
	f, err := flags(path)
	if err != nil {
		return false, err
	}
	return f&unix.UF_HIDDEN != 0, nil
}
