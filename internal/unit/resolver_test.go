package unit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeOpener 按路径返回预置单元，并记录每个路径被打开的次数。
type fakeOpener struct {
	units map[string]*Unit
	opens map[string]int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{units: map[string]*Unit{}, opens: map[string]int{}}
}

func (f *fakeOpener) Open(path string) (*Unit, error) {
	f.opens[path]++
	u, ok := f.units[path]
	if !ok {
		return nil, errors.New("not a unit file")
	}
	dup := *u
	return &dup, nil
}

// placeUnit 在 dir 下写入占位 .so 文件，并让 fakeOpener 在该路径返回 u。
func (f *fakeOpener) placeUnit(t *testing.T, dir string, u *Unit) string {
	t.Helper()
	path := filepath.Join(dir, u.Name+FileExt)
	if err := os.WriteFile(path, []byte("ELF"), 0o600); err != nil {
		t.Fatalf("写入占位单元失败: %v", err)
	}
	f.units[path] = u
	return path
}

func TestResolveByNameUsesCatalog(t *testing.T) {
	c := NewCatalog()
	want := &Unit{Name: "Acme.Hello"}
	if err := c.Add(want); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	r := NewResolver(ResolverOptions{Catalog: c, Opener: newFakeOpener()})

	got, err := r.Resolve("acme.hello")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected catalog instance")
	}
}

func TestResolveUnknownNameFails(t *testing.T) {
	r := NewResolver(ResolverOptions{Catalog: NewCatalog(), Opener: newFakeOpener()})
	_, err := r.Resolve("Missing.Unit")
	if !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestResolveRelativePathAgainstWorkDir(t *testing.T) {
	dir := t.TempDir()
	opener := newFakeOpener()
	path := opener.placeUnit(t, dir, &Unit{Name: "Acme.Blog", Version: "1.0.0"})

	c := NewCatalog()
	r := NewResolver(ResolverOptions{
		Catalog: c,
		Opener:  opener,
		WorkDir: func() (string, error) { return dir, nil },
	})

	u, err := r.Resolve("./Acme.Blog.so")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if u.Location != path {
		t.Fatalf("location should be absolute path %s, got %s", path, u.Location)
	}
	if _, ok := c.Lookup("Acme.Blog"); !ok {
		t.Fatalf("path-loaded unit should be added to catalog")
	}

	again, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again.FullName() != u.FullName() || again != u {
		t.Fatalf("re-resolution must keep identity: %s vs %s", again.FullName(), u.FullName())
	}
	if opener.opens[path] != 1 {
		t.Fatalf("expected single open, got %d", opener.opens[path])
	}
}

func TestResolveMissingPathFails(t *testing.T) {
	r := NewResolver(ResolverOptions{Catalog: NewCatalog(), Opener: newFakeOpener()})
	_, err := r.Resolve(filepath.Join(t.TempDir(), "nope.so"))
	if !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestResolveNameProbesSearchPaths(t *testing.T) {
	dir := t.TempDir()
	opener := newFakeOpener()
	opener.placeUnit(t, dir, &Unit{Name: "Acme.Extra"})

	r := NewResolver(ResolverOptions{Catalog: NewCatalog(), Opener: opener, ProbePaths: []string{t.TempDir(), dir}})
	u, err := r.Resolve("Acme.Extra@3.0.0")
	if err != nil {
		t.Fatalf("probe resolve failed: %v", err)
	}
	if u.Name != "Acme.Extra" {
		t.Fatalf("unexpected unit %s", u.Name)
	}
}

func TestLoadFromRejectsConflictingVersion(t *testing.T) {
	dir := t.TempDir()
	opener := newFakeOpener()
	path := opener.placeUnit(t, dir, &Unit{Name: "Acme.Blog", Version: "2.0.0"})

	c := NewCatalog()
	_ = c.Add(&Unit{Name: "Acme.Blog", Version: "1.0.0"})
	r := NewResolver(ResolverOptions{Catalog: c, Opener: opener})

	if _, err := r.LoadFrom(path); !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("expected ErrDuplicateUnit, got %v", err)
	}
}

func TestResolveNameChecksRequestedVersion(t *testing.T) {
	c := NewCatalog()
	_ = c.Add(&Unit{Name: "Acme.Blog", Version: "1.0.0"})
	_ = c.Add(&Unit{Name: "Acme.Plain"})
	r := NewResolver(ResolverOptions{Catalog: c, Opener: newFakeOpener()})

	if _, err := r.ResolveName("Acme.Blog@2.0.0"); !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("expected ErrDuplicateUnit for version mismatch, got %v", err)
	}
	for _, name := range []string{"Acme.Blog@1.0.0", "acme.blog", "Acme.Plain@3.1.0"} {
		if _, err := r.ResolveName(name); err != nil {
			t.Fatalf("ResolveName(%s) failed: %v", name, err)
		}
	}
}
