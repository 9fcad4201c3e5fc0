package handlers

import "testing"

func TestResolveToolID(t *testing.T) {
	cases := []struct {
		name       string
		packageID  string
		toolID     string
		wantPkg    string
		wantTool   string
		wantOK     bool
	}{
		{"namespaced only", "", "fs__read_file", "fs", "read_file", true},
		{"split call", "fs", "read_file", "fs", "read_file", true},
		{"redundant namespace matches package_id", "fs", "fs__read_file", "fs", "read_file", true},
		{"mismatched namespace, package_id wins literally", "fs", "other__read_file", "fs", "other__read_file", true},
		{"nothing given", "", "", "", "", false},
		{"bare tool id, no package", "", "read_file", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkg, tool, ok := resolveToolID(tc.packageID, tc.toolID)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if pkg != tc.wantPkg || tool != tc.wantTool {
				t.Fatalf("got (%q, %q), want (%q, %q)", pkg, tool, tc.wantPkg, tc.wantTool)
			}
		})
	}
}

func TestNamespacedNameRoundTrip(t *testing.T) {
	full := namespacedName("fs", "read_file")
	prefix, short, ok := splitNamespaced(full)
	if !ok || prefix != "fs" || short != "read_file" {
		t.Fatalf("round trip broke: prefix=%q short=%q ok=%v", prefix, short, ok)
	}
}

func TestGlobToRegex(t *testing.T) {
	cases := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"read_*", "read_file", true},
		{"read_*", "write_file", false},
		{"*file*", "read_file_v2", true},
		{"read_?ile", "read_file", true},
		{"read_?ile", "read_tile", true},
		{"read_?ile", "read_smile", false},
		{"**file", "prefixfile", true},
		{"fs.get", "fsXget", false},
		{"FS__READ", "fs__read", true},
	}
	for _, tc := range cases {
		re, err := globToRegex(tc.pattern)
		if err != nil {
			t.Fatalf("globToRegex(%q) error: %v", tc.pattern, err)
		}
		if got := re.MatchString(tc.input); got != tc.want {
			t.Errorf("pattern %q against %q = %v, want %v", tc.pattern, tc.input, got, tc.want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 50, 12345} {
		encoded := encodeCursor(offset)
		decoded, err := decodeCursor(encoded)
		if err != nil {
			t.Fatalf("decodeCursor(%q) error: %v", encoded, err)
		}
		if decoded != offset {
			t.Fatalf("offset %d round-tripped to %d via cursor %q", offset, decoded, encoded)
		}
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	if _, err := decodeCursor("not-valid-base64!!"); err == nil {
		t.Fatal("expected error for malformed cursor")
	}
}
