// Package captioner asks an external vision model for tags and a
// description of an image.
//
// The service is any OpenAI-compatible chat completions endpoint that
// accepts image_url content parts. Images larger than captioner.max_dimension
// are downscaled with imaging before upload, and WebP input is re-encoded as
// JPEG. Every request is bounded by captioner.timeout.
//
// Failures are returned wrapped in tagstore.ErrCaptioning. Callers treat them
// as non-fatal and keep the file untagged so a later pass can retry it.
package captioner
