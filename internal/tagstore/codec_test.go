package tagstore

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "tagged",
			record: Record{Key: "cat.jpg", Format: "image", Status: StatusTagged, Tags: "cat, pet", Description: "A cat"},
			want:   "cat.jpg:image:cat, pet:A cat",
		},
		{
			name:   "untagged writes sentinels",
			record: Untagged("notes.txt", "txt"),
			want:   "notes.txt:txt:untagged:No description available",
		},
		{
			name:   "pending",
			record: Record{Key: "a.png", Format: "image", Status: StatusPending},
			want:   "a.png:image:Pending tags:No description available",
		},
		{
			name:   "delimiters are escaped",
			record: Record{Key: "a:b.jpg", Format: "image", Status: StatusTagged, Tags: `x\y`, Description: "time: 10:30\nlate"},
			want:   `a\:b.jpg:image:x\\y:time\: 10\:30\nlate`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.record); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{
			name: "tagged",
			line: "cat.jpg:image:cat, pet:A cat",
			want: Record{Key: "cat.jpg", Format: "image", Status: StatusTagged, Tags: "cat, pet", Description: "A cat"},
		},
		{
			name: "sentinels map to status",
			line: "notes.txt:txt:untagged:No description available",
			want: Record{Key: "notes.txt", Format: "txt", Status: StatusUntagged},
		},
		{
			name: "pending sentinel",
			line: "a.png:image:Pending tags:No description available",
			want: Record{Key: "a.png", Format: "image", Status: StatusPending},
		},
		{
			name: "legacy description absorbs colons",
			line: "clock.jpg:image:clock:Shows 10:30:00",
			want: Record{Key: "clock.jpg", Format: "image", Status: StatusTagged, Tags: "clock", Description: "Shows 10:30:00"},
		},
		{
			name: "unknown escape kept literally",
			line: `win.jpg:image:path:C\temp`,
			want: Record{Key: "win.jpg", Format: "image", Status: StatusTagged, Tags: "path", Description: `C\temp`},
		},
		{
			name: "trailing backslash kept",
			line: `a.jpg:image:t:end\`,
			want: Record{Key: "a.jpg", Format: "image", Status: StatusTagged, Tags: "t", Description: `end\`},
		},
		{name: "too few fields", line: "cat.jpg:image:cat", wantErr: true},
		{name: "escaped delimiter does not split", line: `a\:b\:c:d`, wantErr: true},
		{name: "empty key", line: ":image:cat:desc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrCorrupt) {
					t.Errorf("Decode(%q) error = %v, want ErrCorrupt", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	records := []Record{
		Untagged("plain.txt", "txt"),
		{Key: "a.jpg", Format: "image", Status: StatusTagged, Tags: "cat, beach", Description: "A cat on a beach"},
		{Key: "b.webp", Format: "image", Status: StatusPending},
		{Key: "c.jpg", Format: "image", Status: StatusTagged, Tags: "ratio 16:9", Description: "a:b:c"},
		{Key: `odd\name:.mp4`, Format: "mp4", Status: StatusTagged, Tags: `\:`, Description: "line one\r\nline two"},
		{Key: "noext", Format: "unknown", Status: StatusUntagged, Description: "kept"},
	}

	for _, r := range records {
		line := Encode(r)
		got, err := Decode(line)
		if err != nil {
			t.Errorf("Decode(Encode(%+v)) error = %v", r, err)
			continue
		}
		if got != r {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v\n line %q", got, r, line)
		}
	}
}

func TestEncodeAllSortedAndStable(t *testing.T) {
	records := map[string]Record{
		"b.jpg": Untagged("b.jpg", "image"),
		"a.jpg": Untagged("a.jpg", "image"),
		"C.txt": Untagged("C.txt", "txt"),
	}

	want := "C.txt:txt:untagged:No description available\n" +
		"a.jpg:image:untagged:No description available\n" +
		"b.jpg:image:untagged:No description available\n"

	for i := 0; i < 5; i++ {
		if got := string(EncodeAll(records)); got != want {
			t.Fatalf("EncodeAll() = %q, want %q", got, want)
		}
	}
}

func TestEncodeAllUsesMapKey(t *testing.T) {
	records := map[string]Record{"sub/a.jpg": Untagged("a.jpg", "image")}
	got := string(EncodeAll(records))
	if got != "sub/a.jpg:image:untagged:No description available\n" {
		t.Errorf("EncodeAll() = %q", got)
	}
}

func TestDecodeAllSkipsCorruptLines(t *testing.T) {
	data := []byte("a.jpg:image:cat:desc\r\n" +
		"garbage\n" +
		"\n" +
		"b.jpg:image:untagged:No description available\n" +
		"a.jpg:image:dog:newer\n")

	var corrupt []int
	got := DecodeAll(data, func(lineNo int, err error) {
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("corrupt callback error = %v", err)
		}
		corrupt = append(corrupt, lineNo)
	})

	if len(corrupt) != 1 || corrupt[0] != 2 {
		t.Errorf("corrupt lines = %v, want [2]", corrupt)
	}
	if len(got) != 2 {
		t.Fatalf("DecodeAll() returned %d records, want 2", len(got))
	}
	if got["a.jpg"].Tags != "dog" {
		t.Errorf("later line should win, got tags %q", got["a.jpg"].Tags)
	}
	if got["b.jpg"].Status != StatusUntagged {
		t.Errorf("b.jpg status = %v, want untagged", got["b.jpg"].Status)
	}
}

func TestDecodeAllNilCallback(t *testing.T) {
	got := DecodeAll([]byte("bad\nok.jpg:image:x:y\n"), nil)
	if len(got) != 1 {
		t.Errorf("DecodeAll() = %v, want one record", got)
	}
}
