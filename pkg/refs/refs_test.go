package refs

import (
	"errors"
	"testing"
)

func TestParse_SingleReference(t *testing.T) {
	parsed, err := Parse("${run.rundir}")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("Expected 1 reference, got %d", len(parsed))
	}
	r := parsed[0]
	if r.Path.String() != "run.rundir" {
		t.Errorf("Expected path run.rundir, got %s", r.Path.String())
	}
	if r.HasDefault {
		t.Errorf("Expected no default")
	}
	if r.Start != 0 || r.End != 13 {
		t.Errorf("Expected span [0,13), got [%d,%d)", r.Start, r.End)
	}
}

func TestParse_EmbeddedAndMultiple(t *testing.T) {
	text := "${root}/gfs/${run.name}.yaml"
	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("Expected 2 references, got %d", len(parsed))
	}
	if parsed[0].Path.String() != "root" {
		t.Errorf("Expected first path root, got %s", parsed[0].Path.String())
	}
	if parsed[1].Path.String() != "run.name" {
		t.Errorf("Expected second path run.name, got %s", parsed[1].Path.String())
	}
	if got := text[parsed[1].Start:parsed[1].End]; got != "${run.name}" {
		t.Errorf("Expected span to cover ${run.name}, got %q", got)
	}
}

func TestParse_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		path   string
		def    string
		hasDef bool
	}{
		{"plain default", "${threads:-4}", "threads", "4", true},
		{"empty default", "${suffix:-}", "suffix", "", true},
		{"default with slashes", "${out.dir:-/tmp/run}", "out.dir", "/tmp/run", true},
		{"default with colon", "${addr:-localhost:8080}", "addr", "localhost:8080", true},
		{"default with dollar", "${home:-$HOME}", "home", "$HOME", true},
		{"no default", "${plain}", "plain", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(parsed) != 1 {
				t.Fatalf("Expected 1 reference, got %d", len(parsed))
			}
			r := parsed[0]
			if r.Path.String() != tt.path {
				t.Errorf("Expected path %s, got %s", tt.path, r.Path.String())
			}
			if r.HasDefault != tt.hasDef {
				t.Errorf("Expected HasDefault=%v, got %v", tt.hasDef, r.HasDefault)
			}
			if r.Default != tt.def {
				t.Errorf("Expected default %q, got %q", tt.def, r.Default)
			}
		})
	}
}

func TestParse_LiteralDollar(t *testing.T) {
	tests := []struct {
		name string
		text string
		refs int
	}{
		{"bare dollar", "cost is $5", 0},
		{"dollar at end", "price$", 0},
		{"dollar before dollar", "$${a}", 1},
		{"no references", "plain text", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(parsed) != tt.refs {
				t.Errorf("Expected %d references, got %d", tt.refs, len(parsed))
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unclosed", "${run.rundir"},
		{"unclosed after valid", "${a} then ${b"},
		{"empty body", "${}"},
		{"empty path with default", "${:-x}"},
		{"space in path", "${a b}"},
		{"empty segment", "${a..b}"},
		{"nested in default", "${a:-${b}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Expected error for %q, got none", tt.text)
			}
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected *MalformedError, got %T", err)
			}
			if malformed.Reason == "" {
				t.Errorf("Expected a reason in the error")
			}
		})
	}
}

func TestParse_MalformedReportsOffset(t *testing.T) {
	_, err := Parse("ok ${a} bad ${x")
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected *MalformedError, got: %v", err)
	}
	if malformed.Offset != 12 {
		t.Errorf("Expected offset 12, got %d", malformed.Offset)
	}
}

func TestWhole(t *testing.T) {
	text := "${run.rundir}"
	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, ok := Whole(text, parsed); !ok {
		t.Errorf("Expected a whole-scalar reference")
	}

	text = "${run.rundir}/out"
	parsed, err = Parse(text)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, ok := Whole(text, parsed); ok {
		t.Errorf("Expected an embedded reference, not whole-scalar")
	}
}

func TestContains(t *testing.T) {
	if !Contains("a ${b} c") {
		t.Errorf("Expected Contains to report true")
	}
	if Contains("no refs here, just $cash") {
		t.Errorf("Expected Contains to report false")
	}
}
