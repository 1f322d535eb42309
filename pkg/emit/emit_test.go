package emit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/k14s/difflib"

	"github.com/openfroyo/strata/pkg/document"
)

func mapOf(pairs ...any) *document.Map {
	m := document.NewMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func expectEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		diff := difflib.PPDiff(strings.Split(want, "\n"), strings.Split(got, "\n"))
		t.Errorf("Not equal; diff expected...actual:\n%v", diff)
	}
}

func TestMarshal_YAMLOrderPreserved(t *testing.T) {
	doc := mapOf(
		"zebra", int64(1),
		"apple", int64(2),
		"mango", int64(3),
	)

	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "zebra: 1\napple: 2\nmango: 3\n")
}

func TestMarshal_YAMLNested(t *testing.T) {
	doc := mapOf(
		"run", mapOf("rundir", "/data/gfs", "outdir", "/data/out"),
		"threads", int64(8),
	)

	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "run:\n  rundir: /data/gfs\n  outdir: /data/out\nthreads: 8\n")
}

func TestMarshal_YAMLSequence(t *testing.T) {
	doc := mapOf(
		"paths", document.Sequence{"/a", "/b"},
	)

	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "paths:\n  - /a\n  - /b\n")
}

func TestMarshal_YAMLAmbiguousStringsQuoted(t *testing.T) {
	// Strings whose plain form would re-parse as another type must
	// come out quoted.
	doc := mapOf(
		"a", "true",
		"b", "007",
		"c", "null",
	)

	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "a: \"true\"\nb: \"007\"\nc: \"null\"\n")
}

func TestMarshal_YAMLScalars(t *testing.T) {
	doc := mapOf(
		"threads", int64(8),
		"ratio", 0.5,
		"enabled", true,
		"comment", nil,
	)

	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "threads: 8\nratio: 0.5\nenabled: true\ncomment: null\n")
}

func TestMarshal_YAMLScalarSubtree(t *testing.T) {
	out, err := Marshal("/data/gfs", FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	expectEqual(t, string(out), "/data/gfs\n")
}

func TestMarshal_YAMLEmptyDocument(t *testing.T) {
	out, err := Marshal(document.NewMap(), FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	expectEqual(t, string(out), "{}\n")
}

func TestMarshal_JSONOrderPreserved(t *testing.T) {
	doc := mapOf(
		"zebra", int64(1),
		"apple", "x",
	)

	out, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "{\n  \"zebra\": 1,\n  \"apple\": \"x\"\n}\n")
}

func TestMarshal_JSONNested(t *testing.T) {
	doc := mapOf(
		"run", mapOf("rundir", "/data/gfs"),
		"paths", document.Sequence{"/a", int64(2), nil},
		"ratio", 0.5,
		"enabled", true,
	)

	out, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := `{
  "run": {
    "rundir": "/data/gfs"
  },
  "paths": [
    "/a",
    2,
    null
  ],
  "ratio": 0.5,
  "enabled": true
}
`
	expectEqual(t, string(out), want)
}

func TestMarshal_JSONEmptyContainers(t *testing.T) {
	doc := mapOf(
		"empty", document.NewMap(),
		"none", document.Sequence{},
	)

	out, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "{\n  \"empty\": {},\n  \"none\": []\n}\n")
}

func TestMarshal_JSONStringEscaping(t *testing.T) {
	doc := mapOf("msg", `say "hi"`)

	out, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectEqual(t, string(out), "{\n  \"msg\": \"say \\\"hi\\\"\"\n}\n")
}

func TestMarshal_UnknownFormat(t *testing.T) {
	_, err := Marshal(mapOf("a", int64(1)), Format("toml"))
	if err == nil {
		t.Fatal("Expected error for unknown format, got nil")
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	build := func() *document.Map {
		return mapOf(
			"b", mapOf("y", int64(2), "x", int64(1)),
			"a", document.Sequence{"p", "q"},
		)
	}

	for _, format := range []Format{FormatYAML, FormatJSON} {
		first, err := Marshal(build(), format)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		for i := 0; i < 10; i++ {
			next, err := Marshal(build(), format)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !bytes.Equal(first, next) {
				t.Fatalf("Output for %s is not deterministic", format)
			}
		}
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path   string
		format Format
	}{
		{"out.yaml", FormatYAML},
		{"out.yml", FormatYAML},
		{"OUT.YAML", FormatYAML},
		{"out.json", FormatJSON},
	}

	for _, tc := range cases {
		format, err := DetectFormat(tc.path)
		if err != nil {
			t.Errorf("DetectFormat(%q): unexpected error: %v", tc.path, err)
			continue
		}
		if format != tc.format {
			t.Errorf("DetectFormat(%q) = %q, want %q", tc.path, format, tc.format)
		}
	}

	if _, err := DetectFormat("out.txt"); err == nil {
		t.Error("Expected error for unknown extension, got nil")
	}
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTo(&buf, mapOf("a", int64(1)), FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	expectEqual(t, buf.String(), "a: 1\n")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	err := WriteFile(path, mapOf("a", int64(1)), FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected output file, got: %v", err)
	}
	expectEqual(t, string(data), "a: 1\n")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 file in output dir, got %d", len(entries))
	}
}

func TestWriteFile_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "out.json")

	err := WriteFile(path, mapOf("a", int64(1)), FormatJSON)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected output file to exist, got: %v", err)
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	if err := os.WriteFile(path, []byte("old: content\n"), 0o644); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	err := WriteFile(path, mapOf("a", int64(1)), FormatYAML)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, _ := os.ReadFile(path)
	expectEqual(t, string(data), "a: 1\n")
}
