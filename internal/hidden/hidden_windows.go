//go:build windows

package hidden

import (
	"io/fs"

	"golang.org/x/sys/windows"
)

type osAttribute struct{}

// OS returns the Attribute backed by FILE_ATTRIBUTE_HIDDEN.
func OS() Attribute {
	return osAttribute{}
}

func (osAttribute) attrs(path string) (*uint16, uint32, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, 0, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return nil, 0, translate(err)
	}
	return p, attrs, nil
}

func (a osAttribute) Hide(path string) error {
	p, attrs, err := a.attrs(path)
	if err != nil {
		return err
	}
	if attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0 {
		return nil
	}
	return translate(windows.SetFileAttributes(p, attrs|windows.FILE_ATTRIBUTE_HIDDEN))
}

func (a osAttribute) Unhide(path string) error {
	p, attrs, err := a.attrs(path)
	if err != nil {
		return err
	}
	if attrs&windows.FILE_ATTRIBUTE_HIDDEN == 0 {
		return nil
	}
	return translate(windows.SetFileAttributes(p, attrs&^windows.FILE_ATTRIBUTE_HIDDEN))
}

func (a osAttribute) IsHidden(path string) (bool, error) {
	_, attrs, err := a.attrs(path)
	if err != nil {
		return false, err
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0, nil
}

// translate maps Win32 errors onto the io/fs sentinels callers check for.
func translate(err error) error {
	switch err {
	case nil:
		return nil
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return &fs.PathError{Op: "attributes", Err: fs.ErrNotExist}
	case windows.ERROR_ACCESS_DENIED:
		return &fs.PathError{Op: "attributes", Err: fs.ErrPermission}
	default:
		return err
	}
}
