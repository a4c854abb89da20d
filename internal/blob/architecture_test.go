package blob

import (
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyBlobPackageImportsBackends keeps the concrete snapshot backends
// behind this package so callers depend on Store alone.
func TestOnlyBlobPackageImportsBackends(t *testing.T) {
	const (
		backendPrefix = "phenoqc/internal/infra/blob"
		allowedPrefix = "phenoqc/internal/blob"
	)
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "phenoqc/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var violations []string
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, backendPrefix) {
			continue
		}
		for path := range pkg.Imports {
			if path == backendPrefix || strings.HasPrefix(path, backendPrefix+"/") {
				violations = append(violations, pkg.PkgPath+": "+path)
			}
		}
	}
	slices.Sort(violations)
	violations = slices.Compact(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of snapshot backend: %s", v)
	}
}
