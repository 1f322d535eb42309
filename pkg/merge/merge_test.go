package merge

import (
	"strings"
	"testing"

	"github.com/openfroyo/strata/pkg/document"
)

func mapOf(pairs ...any) *document.Map {
	m := document.NewMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func TestMerge_RightmostWins(t *testing.T) {
	base := mapOf("a", int64(1), "b", int64(2))
	overlay := mapOf("b", int64(3), "c", int64(4))

	result := Merge(base, overlay)

	if got := strings.Join(result.Keys(), ","); got != "a,b,c" {
		t.Errorf("Expected keys a,b,c, got %s", got)
	}
	want := mapOf("a", int64(1), "b", int64(3), "c", int64(4))
	if !document.Equal(result, want) {
		t.Errorf("Expected {a:1,b:3,c:4}, got %v", result)
	}
}

func TestMerge_NestedMappingsMergeRecursively(t *testing.T) {
	base := mapOf("run", mapOf("rundir", "/scratch", "threads", int64(8)))
	overlay := mapOf("run", mapOf("threads", int64(16)))

	result := Merge(base, overlay)

	run, _ := result.Get("run")
	rundir, ok := run.(*document.Map).Get("rundir")
	if !ok {
		t.Fatalf("Expected rundir to survive the merge")
	}
	if rundir != "/scratch" {
		t.Errorf("Expected rundir /scratch, got %v", rundir)
	}
	threads, _ := run.(*document.Map).Get("threads")
	if threads != int64(16) {
		t.Errorf("Expected threads 16, got %v", threads)
	}
}

func TestMerge_SequencesReplaceWholesale(t *testing.T) {
	base := mapOf("members", document.Sequence{int64(1), int64(2), int64(3)})
	overlay := mapOf("members", document.Sequence{int64(9)})

	result := Merge(base, overlay)

	members, _ := result.Get("members")
	seq := members.(document.Sequence)
	if len(seq) != 1 {
		t.Fatalf("Expected overlay sequence to replace base, got %d elements", len(seq))
	}
	if seq[0] != int64(9) {
		t.Errorf("Expected element 9, got %v", seq[0])
	}
}

func TestMerge_ScalarReplacesMapping(t *testing.T) {
	base := mapOf("out", mapOf("dir", "/data"))
	overlay := mapOf("out", "disabled")

	result := Merge(base, overlay)

	out, _ := result.Get("out")
	if out != "disabled" {
		t.Errorf("Expected scalar to replace mapping, got %v", out)
	}
}

func TestMerge_MappingReplacesScalar(t *testing.T) {
	base := mapOf("out", "disabled")
	overlay := mapOf("out", mapOf("dir", "/data"))

	result := Merge(base, overlay)

	out, _ := result.Get("out")
	m, ok := out.(*document.Map)
	if !ok {
		t.Fatalf("Expected mapping to replace scalar, got %T", out)
	}
	if v, _ := m.Get("dir"); v != "/data" {
		t.Errorf("Expected dir /data, got %v", v)
	}
}

func TestMerge_NullReplaces(t *testing.T) {
	base := mapOf("a", int64(1))
	overlay := mapOf("a", nil)

	result := Merge(base, overlay)

	v, ok := result.Get("a")
	if !ok {
		t.Fatalf("Expected key a to remain present")
	}
	if v != nil {
		t.Errorf("Expected null to replace 1, got %v", v)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := mapOf("run", mapOf("threads", int64(8)))
	overlay := mapOf("run", mapOf("threads", int64(16)))
	baseSnapshot := document.Copy(base).(*document.Map)
	overlaySnapshot := document.Copy(overlay).(*document.Map)

	result := Merge(base, overlay)
	run, _ := result.Get("run")
	run.(*document.Map).Set("threads", int64(99))

	if !document.Equal(base, baseSnapshot) {
		t.Errorf("Expected base to be unchanged")
	}
	if !document.Equal(overlay, overlaySnapshot) {
		t.Errorf("Expected overlay to be unchanged")
	}
}

func TestMerge_MultipleOverlaysFoldLeftToRight(t *testing.T) {
	base := mapOf("a", int64(1))
	o1 := mapOf("a", int64(2), "b", int64(2))
	o2 := mapOf("a", int64(3))

	result := Merge(base, o1, o2)

	if v, _ := result.Get("a"); v != int64(3) {
		t.Errorf("Expected rightmost overlay to win, got %v", v)
	}
	if v, _ := result.Get("b"); v != int64(2) {
		t.Errorf("Expected middle overlay value to survive, got %v", v)
	}
}

func TestLayers_RecordsProvenance(t *testing.T) {
	base := mapOf("run", mapOf("rundir", "/scratch", "threads", int64(8)))
	overlay := mapOf("run", mapOf("threads", int64(16)), "extra", "x")

	_, prov := Layers(
		Layer{Name: "base.yaml", Doc: base},
		Layer{Name: "prod.yaml", Doc: overlay},
	)

	src, ok := prov.Lookup(document.Path{"run", "rundir"})
	if !ok {
		t.Fatalf("Expected provenance for run.rundir")
	}
	if src.Layer != 0 || src.Name != "base.yaml" {
		t.Errorf("Expected run.rundir from layer 0 base.yaml, got layer %d %s", src.Layer, src.Name)
	}

	src, ok = prov.Lookup(document.Path{"run", "threads"})
	if !ok {
		t.Fatalf("Expected provenance for run.threads")
	}
	if src.Layer != 1 || src.Name != "prod.yaml" {
		t.Errorf("Expected run.threads from layer 1 prod.yaml, got layer %d %s", src.Layer, src.Name)
	}

	src, _ = prov.Lookup(document.Path{"extra"})
	if src.Layer != 1 {
		t.Errorf("Expected extra from layer 1, got %d", src.Layer)
	}
}

func TestProvenance_PathsSorted(t *testing.T) {
	base := mapOf("b", int64(1), "a", int64(2))
	_, prov := Layers(Layer{Name: "base.yaml", Doc: base})

	paths := prov.Paths()
	if len(paths) != 2 {
		t.Fatalf("Expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "a" || paths[1] != "b" {
		t.Errorf("Expected sorted paths a,b, got %v", paths)
	}
}

func TestLayers_Empty(t *testing.T) {
	doc, prov := Layers()
	if doc.Len() != 0 {
		t.Errorf("Expected empty document, got %d entries", doc.Len())
	}
	if len(prov.Paths()) != 0 {
		t.Errorf("Expected no provenance entries")
	}
}
