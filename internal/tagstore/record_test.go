package tagstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"reflect"
	"testing"
)

func TestNewRecordNormalizesSentinels(t *testing.T) {
	tests := []struct {
		name       string
		tags, desc string
		wantStatus Status
		wantTags   string
		wantDesc   string
	}{
		{"tagged", "cat", "A cat", StatusTagged, "cat", "A cat"},
		{"untagged sentinel", "untagged", "No description available", StatusUntagged, "", ""},
		{"pending sentinel", "Pending tags", "", StatusPending, "", ""},
		{"blank tags", "   ", "d", StatusUntagged, "", "d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord("k", "image", tt.tags, tt.desc)
			if r.Status != tt.wantStatus || r.Tags != tt.wantTags || r.Description != tt.wantDesc {
				t.Errorf("NewRecord() = %+v", r)
			}
		})
	}
}

func TestTaggedAndTagList(t *testing.T) {
	r := Untagged("a.jpg", "image").Tagged([]string{" cat", "", "beach "})
	if r.Status != StatusTagged || r.Tags != "cat, beach" {
		t.Fatalf("Tagged() = %+v", r)
	}
	if got := r.TagList(); !reflect.DeepEqual(got, []string{"cat", "beach"}) {
		t.Errorf("TagList() = %v", got)
	}

	cleared := r.Tagged(nil)
	if cleared.Status != StatusUntagged || cleared.Tags != "" {
		t.Errorf("Tagged(nil) = %+v, want untagged", cleared)
	}
	if cleared.TagList() != nil {
		t.Errorf("TagList() of untagged = %v, want nil", cleared.TagList())
	}
}

func TestMatches(t *testing.T) {
	r := Record{Key: "a/Cat.jpg", Status: StatusTagged, Tags: "pet, Fluffy", Description: "Sleeping"}
	for _, q := range []string{"cat", "fluffy", "sleep", "a/"} {
		if !r.Matches(q) {
			t.Errorf("Matches(%q) = false, want true", q)
		}
	}
	if r.Matches("dog") {
		t.Error("Matches(dog) = true, want false")
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(Record{Key: "a", Status: StatusPending})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Status != StatusPending {
		t.Errorf("Status = %v, want pending", back.Status)
	}
	if err := back.Status.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPathErrorClassification(t *testing.T) {
	err := WrapPath("read", "/media/.tags", fs.ErrPermission)
	if !errors.Is(err, ErrPermission) {
		t.Error("permission error should match ErrPermission")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("permission error should still match fs.ErrPermission")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("permission error should not match ErrNotFound")
	}

	var pe *PathError
	if !errors.As(err, &pe) || pe.Path != "/media/.tags" {
		t.Errorf("errors.As() path = %v", pe)
	}

	if !errors.Is(WrapPath("stat", "/x", fs.ErrNotExist), ErrNotFound) {
		t.Error("not-exist error should match ErrNotFound")
	}
	if WrapPath("x", "/x", nil) != nil {
		t.Error("WrapPath(nil) should be nil")
	}
}
