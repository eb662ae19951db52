package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGoMod(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "go.mod")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	return path
}

func TestFindGoMod(t *testing.T) {
	root := t.TempDir()
	want := writeGoMod(t, root, "module example.com/app\n\ngo 1.21\n")

	nested := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := findGoMod(nested); got != want {
		t.Errorf("findGoMod(%s) = %q, want %q", nested, got, want)
	}
}

func TestFindGoModMissing(t *testing.T) {
	// A fresh temp dir has no go.mod anywhere up to the filesystem root,
	// unless the environment plants one; tolerate that by only requiring
	// that nothing inside the temp dir itself is reported.
	dir := t.TempDir()
	if got := findGoMod(dir); got != "" && filepath.Dir(got) == dir {
		t.Errorf("findGoMod invented %q inside an empty dir", got)
	}
}

func TestInspectGoMod(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		required   bool
		compatible bool
		replaces   int
	}{
		{
			name: "compatible require",
			content: `module example.com/app

go 1.21

require github.com/kolkov/memlock v0.1.0
`,
			required:   true,
			compatible: true,
		},
		{
			name: "future version",
			content: `module example.com/app

go 1.21

require github.com/kolkov/memlock v1.0.0
`,
			required:   true,
			compatible: false,
		},
		{
			name: "not required",
			content: `module example.com/app

go 1.21

require github.com/rs/zerolog v1.33.0
`,
		},
		{
			name: "replace directive",
			content: `module example.com/app

go 1.21

require github.com/kolkov/memlock v0.1.0

replace github.com/kolkov/memlock => ../memlock
`,
			required:   true,
			compatible: true,
			replaces:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeGoMod(t, t.TempDir(), tt.content)
			r, err := inspectGoMod(path)
			if err != nil {
				t.Fatalf("inspectGoMod: %v", err)
			}
			if r.Module != "example.com/app" {
				t.Errorf("Module = %q, want example.com/app", r.Module)
			}
			if r.Required != tt.required {
				t.Errorf("Required = %v, want %v", r.Required, tt.required)
			}
			if r.Compatible != tt.compatible {
				t.Errorf("Compatible = %v, want %v", r.Compatible, tt.compatible)
			}
			if len(r.Replaces) != tt.replaces {
				t.Errorf("Replaces = %v, want %d entries", r.Replaces, tt.replaces)
			}
		})
	}
}

func TestInspectGoModMalformed(t *testing.T) {
	path := writeGoMod(t, t.TempDir(), "this is not a go.mod\n")
	if _, err := inspectGoMod(path); err == nil {
		t.Fatal("inspectGoMod accepted a malformed file")
	}
}
