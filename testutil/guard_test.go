package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		in                 string
		internal, external bool
	}{
		{"doglog/internal/core", true, false},
		{"doglog/internal", true, false},
		{"doglog/internalize", false, false},
		{"doglog/pkg/domain", false, false},
		{"net/http", false, false},
		{"github.com/gorilla/mux", false, true},
		{"go.uber.org/zap", false, true},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.internal {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.internal)
		}
		if got := ThirdPartyImportForbidden(c.in); got != c.external {
			t.Fatalf("ThirdPartyImportForbidden(%q)=%v want %v", c.in, got, c.external)
		}
	}
	both := AnyOf(InternalImportForbidden, ThirdPartyImportForbidden)
	if !both("doglog/internal/x") || !both("github.com/x/y") || both("strings") {
		t.Fatalf("AnyOf combined predicates incorrectly")
	}
}

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("a.go", "package tmp\nimport (\n\"fmt\"\n\"doglog/internal/core\"\n)\nvar _ = fmt.Sprint\n")
	write("a_test.go", "package tmp\nimport \"github.com/x/y\"\n")
	write("notes.txt", "import \"doglog/internal/x\"")

	viols, err := directImportViolations(dir, AnyOf(InternalImportForbidden, ThirdPartyImportForbidden))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "doglog/internal/core (in a.go)") {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingT{}
	failIfViolations(rec, "reason", viols)
	if !strings.Contains(rec.msg, "reason") || !strings.Contains(rec.msg, "a.go") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}
	rec = &recordingT{}
	failIfViolations(rec, "reason", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}

	if _, err := directImportViolations(filepath.Join(dir, "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, ThirdPartyImportForbidden, "stdlib only")
}
