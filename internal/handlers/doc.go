// Package handlers provides the HTTP handlers for the VisionVault API.
//
// It includes handlers for:
//   - Folder tree and directory listings
//   - Raw file downloads and uploads
//   - Tag edits, renames, deletes and the captioning pass
//   - Search over the root store
//   - Health checks, version, stats and on-demand sweeps
//
// Errors from the library are mapped onto status codes by writeError:
// missing paths become 404, name collisions 409, invalid names and request
// bodies 400, permission failures 403 and everything else 500.
package handlers
