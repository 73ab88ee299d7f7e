package tagstore

import (
	"fmt"
	"strings"
)

// Status says whether a record carries real tags yet.
type Status int

const (
	// StatusUntagged means the file has been seen but never captioned or edited.
	StatusUntagged Status = iota
	// StatusPending marks a file queued for captioning by older versions.
	StatusPending
	// StatusTagged means Tags holds user or captioner supplied labels.
	StatusTagged
)

// TagSeparator joins individual labels in Record.Tags.
const TagSeparator = ", "

func (s Status) String() string {
	switch s {
	case StatusUntagged:
		return "untagged"
	case StatusPending:
		return "pending"
	case StatusTagged:
		return "tagged"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "untagged":
		*s = StatusUntagged
	case "pending":
		*s = StatusPending
	case "tagged":
		*s = StatusTagged
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Record is the metadata kept for one file.
type Record struct {
	Key         string `json:"key"`
	Format      string `json:"format"`
	Status      Status `json:"status"`
	Tags        string `json:"tags"`
	Description string `json:"description"`
}

// NewRecord builds a record from raw field values, mapping the on-disk
// sentinels and blank tags onto the matching Status.
func NewRecord(key, format, tags, description string) Record {
	r := Record{Key: key, Format: format, Description: description}
	if description == noDescriptionSentinel {
		r.Description = ""
	}

	switch strings.TrimSpace(tags) {
	case "", untaggedSentinel:
		r.Status = StatusUntagged
	case pendingSentinel:
		r.Status = StatusPending
	default:
		r.Status = StatusTagged
		r.Tags = tags
	}
	return r
}

// Untagged returns a fresh record for a file that has not been processed.
func Untagged(key, format string) Record {
	return Record{Key: key, Format: format, Status: StatusUntagged}
}

// Tagged returns r with the given labels applied.
func (r Record) Tagged(tags []string) Record {
	joined := JoinTags(tags)
	if joined == "" {
		r.Status = StatusUntagged
		r.Tags = ""
		return r
	}
	r.Status = StatusTagged
	r.Tags = joined
	return r
}

// WithKey returns a copy of r stored under key.
func (r Record) WithKey(key string) Record {
	r.Key = key
	return r
}

// NeedsCaption reports whether the captioning pass should process r.
func (r Record) NeedsCaption() bool {
	return r.Status != StatusTagged
}

// TagList splits Tags into trimmed, non-empty labels.
func (r Record) TagList() []string {
	if r.Status != StatusTagged {
		return nil
	}
	return SplitTags(r.Tags)
}

// SplitTags splits a comma separated tag string.
func SplitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags trims and joins labels with TagSeparator, dropping blanks.
func JoinTags(tags []string) string {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, TagSeparator)
}

// Matches reports whether the lower-cased query is a substring of the key,
// tags or description.
func (r Record) Matches(lowerQuery string) bool {
	return strings.Contains(strings.ToLower(r.Key), lowerQuery) ||
		strings.Contains(strings.ToLower(r.Tags), lowerQuery) ||
		strings.Contains(strings.ToLower(r.Description), lowerQuery)
}
