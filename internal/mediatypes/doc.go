// Package mediatypes classifies files by name.
//
// It has no dependencies beyond the standard library so the store, scanner,
// captioner and handler packages can all import it.
//
// # Formats
//
// Classify produces the format stored with every tag record:
//
//	mediatypes.Classify("Beach.JPG")  // "image"
//	mediatypes.Classify("clip.MP4")   // "mp4"
//	mediatypes.Classify("README")     // "unknown"
//
// Only jpg, jpeg, png and webp count as images; those are the files the
// captioning pass sends to the captioning service.
//
// # MIME Types
//
// GetMimeType maps a file name to the Content-Type used when serving raw
// files, and UploadExtension maps an uploaded image's Content-Type back to
// the extension it is saved under.
package mediatypes
