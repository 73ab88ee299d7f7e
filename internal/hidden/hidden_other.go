//go:build !windows && !darwin

package hidden

import "os"

type osAttribute struct{}

// OS returns the Attribute for platforms where hiding is purely a naming
// convention. Hide and Unhide only verify the path exists; IsHidden reports
// the dot prefix.
func OS() Attribute {
	return osAttribute{}
}

func (osAttribute) Hide(path string) error {
	_, err := os.Lstat(path)
	return err
}

func (osAttribute) Unhide(path string) error {
	_, err := os.Lstat(path)
	return err
}

func (osAttribute) IsHidden(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		return false, err
	}
	return IsHiddenName(path), nil
}
