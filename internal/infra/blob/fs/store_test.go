package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phenoqc/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := st.Put(ctx, "exports/ctx/a.json", strings.NewReader(`{"a":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"dataset": "d1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" || !strings.HasPrefix(info.URL, "file://") {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := st.Put(ctx, "exports/ctx/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := st.Get(ctx, "exports/ctx/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"a":1}` || got.Metadata["dataset"] != "d1" || got.ContentType != "application/json" {
		t.Fatalf("unexpected get %+v %q", got, body)
	}

	if _, err := st.Put(ctx, "exports/other/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := st.List(ctx, "exports/ctx/")
	if err != nil || len(list) != 1 || list[0].Key != "exports/ctx/a.json" {
		t.Fatalf("list: %v %+v", err, list)
	}
	all, _ := st.List(ctx, "")
	if len(all) != 2 || all[0].Key != "exports/ctx/a.json" {
		t.Fatalf("list all: %+v", all)
	}

	deleted, err := st.Delete(ctx, "exports/ctx/a.json")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if deleted, _ := st.Delete(ctx, "exports/ctx/a.json"); deleted {
		t.Fatalf("second delete reported existing")
	}
	if _, err := st.Head(ctx, "exports/ctx/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "/abs", "../escape", "a/../../b"} {
		if _, err := st.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestPresignURL(t *testing.T) {
	root := t.TempDir()
	st, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	u, err := st.PresignURL(context.Background(), "a/b.json", core.SignedURLOptions{})
	if err != nil || !strings.HasSuffix(u, "/a/b.json") {
		t.Fatalf("presign: %q %v", u, err)
	}
	if _, err := st.PresignURL(context.Background(), "a/b.json", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	st, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := st.Put(context.Background(), "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "k"+sidecarSuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := st.Head(context.Background(), "k"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
