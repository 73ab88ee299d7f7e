/*
Package tagstore persists per-file tag records in flat, hidden text files.

Each media directory carries a directory store (".tags" by default) keyed by
bare filename, and the media root carries a root store (".tags_index") keyed
by forward-slash path relative to the root. The directory store is the
authoritative copy; the root store mirrors every record so search can read a
single file. Keeping the two in agreement is the job of the tagsync and
indexer packages, not this one.

# File Format

One record per line, four fields separated by ':':

	key:format:tags:description

Backslash, colon, CR and LF inside a field are written as \\, \:, \r and \n.
Decoding splits on unescaped colons at most four ways, so lines written
without escapes by older versions still decode with any extra colons folded
into the description. A line that does not yield four fields is skipped and
counted in visionvault_store_corrupt_lines_total.

The literal values "untagged", "Pending tags" and "No description available"
only exist on disk. In memory a Record carries a Status and an empty
Description instead.

# I/O

Reads and writes go through the hidden.Bracket helper so the store file only
loses its hidden attribute for the duration of the I/O. Reads use the NFS
retry wrappers from the filesystem package, writes replace the file
atomically, and decoded stores are kept in an LRU cache validated by
modification time and size.
*/
package tagstore
