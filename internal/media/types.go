package media

import (
	"time"

	"visionvault/internal/tagstore"
)

// Item is one entry of a directory listing.
type Item struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Type        string          `json:"type"`
	Status      tagstore.Status `json:"status"`
	Tags        string          `json:"tags"`
	Description string          `json:"description"`
	Size        int64           `json:"size"`
	ModTime     time.Time       `json:"modTime"`
	MimeType    string          `json:"mimeType,omitempty"`
}

// IsFolder reports whether the item is a directory.
func (i Item) IsFolder() bool {
	return i.Type == FolderType
}

// Listing is the response for one directory.
type Listing struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Parent      string     `json:"parent,omitempty"`
	Breadcrumbs []PathPart `json:"breadcrumbs"`
	Items       []Item     `json:"items"`
}

// PathPart represents a single component of a breadcrumb path.
type PathPart struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// TreeNode is a folder in the navigation tree. Error is set when the folder
// could not be read; its children are then empty.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Children []*TreeNode `json:"children"`
	Error    string      `json:"error,omitempty"`
}
