package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"phenoqc/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := New()
	if st.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", st.Driver())
	}
	meta := map[string]string{"k": "v"}
	info, err := st.Put(ctx, "a/b", strings.NewReader("hello"), core.PutOptions{Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["k"] = "mutated"
	if info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := st.Put(ctx, "a/b", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, rc, err := st.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" || got.Metadata["k"] != "v" {
		t.Fatalf("unexpected get %q %+v", b, got)
	}
	if _, err := st.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.PresignURL(ctx, "a/b", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	_, _ = st.Put(ctx, "c", strings.NewReader(""), core.PutOptions{})
	list, _ := st.List(ctx, "a/")
	if len(list) != 1 || list[0].Key != "a/b" {
		t.Fatalf("list: %+v", list)
	}
	if ok, _ := st.Delete(ctx, "a/b"); !ok {
		t.Fatalf("expected delete to report existing")
	}
	if ok, _ := st.Delete(ctx, "a/b"); ok {
		t.Fatalf("expected second delete to report missing")
	}
}
