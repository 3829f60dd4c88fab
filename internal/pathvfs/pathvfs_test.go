package pathvfs

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/a/b/c.txt", "/a/b/c.txt", false},
		{"a/b", "/a/b", false},
		{"//a//b/", "/a/b", false},
		{"  /a  ", "/a", false},
		{"/", "/", false},
		{"", "", true},
		{"   ", "", true},
		{"/a/../b", "", true},
		{"..", "", true},
		{"/a with spaces/b,punct!", "/a with spaces/b,punct!", false},
		{"/日本語/ファイル", "/日本語/ファイル", false},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q) expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"/a/b/c", "a", "//x//y/", "/"}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) second pass: %v", once, err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q != %q", once, twice)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"readme.md", "readme.md", false},
		{" spaced.txt ", "spaced.txt", false},
		{"", "", true},
		{"a/b", "", true},
		{".", "", true},
		{"..", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeName(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeName(%q) expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeName(%q) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"/":          "/",
		"/a":         "a",
		"/a/b/c.txt": "c.txt",
	}
	for in, want := range cases {
		if got := Basename(in); got != want {
			t.Errorf("Basename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParent(t *testing.T) {
	if _, ok := Parent("/"); ok {
		t.Error("Parent(\"/\") should have no parent")
	}
	cases := map[string]string{
		"/x":         "/",
		"/a/b/c.txt": "/a/b",
	}
	for in, want := range cases {
		got, ok := Parent(in)
		if !ok {
			t.Errorf("Parent(%q) expected a parent", in)
		}
		if got != want {
			t.Errorf("Parent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	cases := []struct{ parent, name, want string }{
		{"/", "a", "/a"},
		{"", "a", "/a"},
		{"/a", "b", "/a/b"},
	}
	for _, c := range cases {
		if got := Join(c.parent, c.name); got != c.want {
			t.Errorf("Join(%q,%q) = %q, want %q", c.parent, c.name, got, c.want)
		}
	}
}

func TestSplit(t *testing.T) {
	if segs := Split("/"); len(segs) != 0 {
		t.Errorf("Split(\"/\") = %v, want empty", segs)
	}
	segs := Split("/a/b/c")
	want := []string{"a", "b", "c"}
	if len(segs) != len(want) {
		t.Fatalf("Split(/a/b/c) = %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("Split(/a/b/c)[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
}

func TestAncestors(t *testing.T) {
	got := Ancestors("/a/b/c")
	want := []string{"/", "/a", "/a/b"}
	if len(got) != len(want) {
		t.Fatalf("Ancestors(/a/b/c) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ancestors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
