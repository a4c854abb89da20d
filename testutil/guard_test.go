package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	thirdParty := ThirdPartyImportForbidden("phenoqc", "github.com/aclements/go-moremath")
	module := ModuleImportForbidden("phenoqc")
	cases := []struct {
		name string
		pred ImportPredicate
		in   string
		want bool
	}{
		{"internal nested", InternalImportForbidden, "phenoqc/internal/core", true},
		{"internal root", InternalImportForbidden, "phenoqc/internal", true},
		{"internal lookalike", InternalImportForbidden, "phenoqc/pkg/internalish", false},
		{"viz package", VizImportForbidden, "phenoqc/pkg/viz/stats", true},
		{"viz other", VizImportForbidden, "phenoqc/pkg/domain", false},
		{"module self", module, "phenoqc", true},
		{"module package", module, "phenoqc/pkg/domain", true},
		{"module prefix lookalike", module, "phenoqcx/pkg", false},
		{"stdlib", thirdParty, "math", false},
		{"stdlib nested", thirdParty, "encoding/json", false},
		{"own module", thirdParty, "phenoqc/pkg/domain", false},
		{"allowed", thirdParty, "github.com/aclements/go-moremath/stats", false},
		{"disallowed", thirdParty, "github.com/google/uuid", true},
	}
	for _, tc := range cases {
		if got := tc.pred(tc.in); got != tc.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", tc.name, tc.in, got, tc.want)
		}
	}

	both := Any(InternalImportForbidden, VizImportForbidden)
	if !both("phenoqc/internal/config") || !both("phenoqc/pkg/viz/scale") || both("fmt") {
		t.Fatalf("Any must forbid what any predicate forbids")
	}
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nimport \"fmt\"\nfunc A(){fmt.Println()}\n")
	writeSource(t, root, "a_test.go", "package a\nimport \"phenoqc/internal/core\"\n")
	writeSource(t, filepath.Join(root, "sub"), "b.go", "package sub\nimport \"phenoqc/internal/config\"\n")
	writeSource(t, filepath.Join(root, "testdata"), "c.go", "package testdata\nimport \"phenoqc/internal/blob\"\n")
	return root
}

type recorder struct {
	msg string
}

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	root := sampleTree(t)

	viols, err := directImportViolations(root, false, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("top level scan must ignore tests and subpackages, got %v", viols)
	}
	AssertNoDirectImports(t, root, InternalImportForbidden, "top level only")

	viols, err = directImportViolations(root, true, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "phenoqc/internal/config (in sub/b.go)" {
		t.Fatalf("unexpected tree violations %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), false, InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeSource(t, dir, "bad.go", "package")
	if _, err := directImportViolations(dir, false, InternalImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFailIfViolations(t *testing.T) {
	var r recorder
	failIfViolations(&r, "direct imports", "none", nil)
	if r.msg != "" {
		t.Fatalf("no violations must not fail, got %q", r.msg)
	}
	failIfViolations(&r, "direct imports", "layering", []string{"x", "y"})
	if !strings.Contains(r.msg, "forbidden direct imports detected (layering)") || !strings.HasSuffix(r.msg, "x\ny") {
		t.Fatalf("unexpected failure message %q", r.msg)
	}
}

func TestAssertNoTransitiveDependencyUsesGoList(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })

	var gotPattern string
	goListDeps = func(pattern string) ([]byte, error) {
		gotPattern = pattern
		return []byte("fmt\n\nphenoqc/pkg/domain\n"), nil
	}
	AssertNoTransitiveDependency(t, "./...", InternalImportForbidden, "none")
	if gotPattern != "./..." {
		t.Fatalf("unexpected pattern %q", gotPattern)
	}

	if got := matchLines("fmt\n phenoqc/internal/core \n", InternalImportForbidden); len(got) != 1 || got[0] != "phenoqc/internal/core" {
		t.Fatalf("unexpected matches %v", got)
	}
}
