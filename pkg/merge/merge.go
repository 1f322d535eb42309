package merge

import (
	"sort"

	"github.com/openfroyo/strata/pkg/document"
)

// Layer is one input document with a label for provenance, usually
// the source file path.
type Layer struct {
	Name string
	Doc  *document.Map
}

// Source identifies the layer that supplied a value: its position in
// the fold (0 is the base) and its label.
type Source struct {
	Layer int
	Name  string
}

// Provenance records, for each leaf path of the merged document, the
// layer that supplied the winning value.
type Provenance struct {
	sources map[string]Source
}

func newProvenance() *Provenance {
	return &Provenance{sources: make(map[string]Source)}
}

// Record stores src as the origin of the value at path, replacing any
// earlier origin.
func (p *Provenance) Record(path document.Path, src Source) {
	p.sources[path.String()] = src
}

// Lookup returns the origin of the value at path.
func (p *Provenance) Lookup(path document.Path) (Source, bool) {
	src, ok := p.sources[path.String()]
	return src, ok
}

// Paths returns all recorded paths in lexicographic order.
func (p *Provenance) Paths() []string {
	paths := make([]string, 0, len(p.sources))
	for path := range p.sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Merge folds overlays onto base, rightmost winning, and returns a
// new document. The inputs are not modified.
func Merge(base *document.Map, overlays ...*document.Map) *document.Map {
	layers := make([]Layer, 0, 1+len(overlays))
	layers = append(layers, Layer{Doc: base})
	for _, o := range overlays {
		layers = append(layers, Layer{Doc: o})
	}
	doc, _ := Layers(layers...)
	return doc
}

// Layers folds the given layers in order, rightmost winning, and
// returns the merged document together with leaf provenance. The
// inputs are not modified. With no layers the result is an empty
// document.
func Layers(layers ...Layer) (*document.Map, *Provenance) {
	prov := newProvenance()
	if len(layers) == 0 {
		return document.NewMap(), prov
	}

	result := document.Copy(layers[0].Doc).(*document.Map)
	recordTree(nil, result, Source{Layer: 0, Name: layers[0].Name}, prov)

	for i, layer := range layers[1:] {
		src := Source{Layer: i + 1, Name: layer.Name}
		mergeMaps(nil, result, layer.Doc, src, prov)
	}
	return result, prov
}

// mergeMaps merges overlay into dst in place. dst is owned by the
// fold; overlay is read-only and its values are deep-copied in.
func mergeMaps(path document.Path, dst, overlay *document.Map, src Source, prov *Provenance) {
	overlay.Iterate(func(key string, overlayValue any) {
		childPath := path.Child(key)

		dstValue, exists := dst.Get(key)
		if exists {
			dstMap, dstIsMap := dstValue.(*document.Map)
			overlayMap, overlayIsMap := overlayValue.(*document.Map)
			if dstIsMap && overlayIsMap {
				mergeMaps(childPath, dstMap, overlayMap, src, prov)
				return
			}
		}

		copied := document.Copy(overlayValue)
		dst.Set(key, copied)
		recordTree(childPath, copied, src, prov)
	})
}

// recordTree records src as the origin of every leaf under value.
// Empty mappings are leaves themselves.
func recordTree(path document.Path, value any, src Source, prov *Provenance) {
	if m, ok := value.(*document.Map); ok {
		if m.Len() == 0 {
			prov.Record(path, src)
			return
		}
		m.Iterate(func(key string, child any) {
			recordTree(path.Child(key), child, src, prov)
		})
		return
	}
	prov.Record(path, src)
}
