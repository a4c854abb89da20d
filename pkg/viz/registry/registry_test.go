package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type gene struct {
	ID     string
	Symbol string
}

func newGenes(ids ...string) *Registry[string, gene] {
	r := New(func(g gene) string { return g.ID })
	for _, id := range ids {
		r.Append(gene{ID: id, Symbol: "sym-" + id})
	}
	return r
}

func TestAppendPrependInsertAfter(t *testing.T) {
	r := newGenes("b", "c")
	r.Prepend(gene{ID: "a"})
	r.InsertAfter(gene{ID: "x"}, 1)
	r.InsertAfter(gene{ID: "z"}, 10)
	r.InsertAfter(gene{ID: "y"}, 3)
	if diff := cmp.Diff([]string{"a", "b", "x", "c", "y", "z"}, r.Keys()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if r.Count() != 6 {
		t.Fatalf("expected 6 items, got %d", r.Count())
	}
	if g, ok := r.At(2); !ok || g.ID != "x" {
		t.Fatalf("unexpected item at 2: %+v", g)
	}
	if _, ok := r.At(6); ok {
		t.Fatalf("expected no item past the end")
	}
}

func TestMoveTo(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		index int
		want  []string
	}{
		{"to head", "c", 0, []string{"c", "a", "b", "d"}},
		{"forward", "a", 2, []string{"b", "a", "c", "d"}},
		{"past end", "b", 9, []string{"a", "c", "d", "b"}},
		{"tail to middle", "d", 1, []string{"a", "d", "b", "c"}},
		{"onto itself", "b", 1, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newGenes("a", "b", "c", "d")
			if !r.MoveTo(tc.key, tc.index) {
				t.Fatalf("expected key %q to exist", tc.key)
			}
			if diff := cmp.Diff(tc.want, r.Keys()); diff != "" {
				t.Fatalf("order (-want +got):\n%s", diff)
			}
			if r.Count() != 4 {
				t.Fatalf("move changed count to %d", r.Count())
			}
			var reverse []string
			for i := r.tail; i != none; i = r.nodes[i].prev {
				reverse = append(reverse, r.nodes[i].key)
			}
			if len(reverse) != 4 || reverse[0] != tc.want[3] || reverse[3] != tc.want[0] {
				t.Fatalf("prev links inconsistent: %v", reverse)
			}
		})
	}
	r := newGenes("a")
	if r.MoveTo("missing", 0) {
		t.Fatalf("expected missing key to report false")
	}
}

func TestRemoveAndFind(t *testing.T) {
	r := newGenes("a", "b", "c")
	if g, ok := r.Find("b"); !ok || g.Symbol != "sym-b" {
		t.Fatalf("unexpected find result %+v", g)
	}
	if n := r.Remove("b"); n != 2 {
		t.Fatalf("expected 2 remaining, got %d", n)
	}
	if _, ok := r.Find("b"); ok {
		t.Fatalf("removed key still found")
	}
	if n := r.Remove("b"); n != 2 {
		t.Fatalf("second remove changed count to %d", n)
	}
	r.Remove("a")
	r.Remove("c")
	if r.Count() != 0 || len(r.Keys()) != 0 || r.head != none || r.tail != none {
		t.Fatalf("expected empty registry")
	}
	r.Append(gene{ID: "d"})
	if len(r.nodes) != 3 {
		t.Fatalf("expected arena slot reuse, arena size %d", len(r.nodes))
	}
	if diff := cmp.Diff([]string{"d"}, r.Keys()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestTraverseAndClear(t *testing.T) {
	r := newGenes("a", "b")
	var symbols []string
	r.Traverse(func(g gene, key string) {
		if g.ID != key {
			t.Fatalf("key mismatch %q != %q", g.ID, key)
		}
		symbols = append(symbols, g.Symbol)
	})
	if diff := cmp.Diff([]string{"sym-a", "sym-b"}, symbols); diff != "" {
		t.Fatalf("traversal (-want +got):\n%s", diff)
	}
	r.Clear()
	if r.Count() != 0 {
		t.Fatalf("clear left %d items", r.Count())
	}
	r.Prepend(gene{ID: "z"})
	if diff := cmp.Diff([]string{"z"}, r.Keys()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}
