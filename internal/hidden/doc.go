/*
Package hidden abstracts the host's "hidden" file attribute.

Store files live inside the directories they describe, so they must not show
up in a file manager or in directory listings. On Unix-like systems a leading
dot already hides a file; macOS additionally honours the UF_HIDDEN flag and
Windows uses FILE_ATTRIBUTE_HIDDEN. The Attribute interface exposes the flag
as a fallible capability:

	attr := hidden.OS()
	err := hidden.Bracket(attr, storePath, hidden.Restore, func() error {
	    data, err = os.ReadFile(storePath)
	    return err
	})

Bracket clears the flag for the duration of fn and puts it back afterwards.
Failures of the capability itself are logged with the path and counted in
visionvault_hidden_attribute_errors_total; they are never returned, so they
cannot mask the I/O error of fn.

Memory is an in-process implementation with failure injection for tests.
*/
package hidden
