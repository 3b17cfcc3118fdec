package plugin

import (
	"io"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

func assetUnit(name string, files ...string) *unit.Unit {
	assets := fstest.MapFS{}
	for _, f := range files {
		assets["wwwroot/"+f] = &fstest.MapFile{Data: []byte(name + ":" + f)}
	}
	return &unit.Unit{Name: name, Assets: assets}
}

func TestAbsoluteStyleSheetReference(t *testing.T) {
	f := newFixture(t, assetUnit("Foo", "app.css"))
	d := enabled("Foo")
	d.StyleSheets = []string{"/app.css"}

	if err := f.loader.Register([]Descriptor{d}, f.svc, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	want := []string{`<link rel="stylesheet" href="_content/Foo/app.css" />`}
	if diff := cmp.Diff(want, f.loader.Registry().StyleSheetLinks()); diff != "" {
		t.Fatalf("style links mismatch (-want +got):\n%s", diff)
	}
}

func TestRelativeScriptReference(t *testing.T) {
	f := newFixture(t, assetUnit("Foo", "utility.js"))
	d := enabled("Foo")
	d.Scripts = []string{"utility.js"}

	if err := f.loader.Register([]Descriptor{d}, f.svc, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	want := []string{`<script src="_content/Foo/utility.js"></script>`}
	if diff := cmp.Diff(want, f.loader.Registry().ScriptLinks()); diff != "" {
		t.Fatalf("script links mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedResourcesKeepDeclarationOrder(t *testing.T) {
	f := newFixture(t, assetUnit("Foo", "css/a.css", "css/b.css", "js/x.js"))
	d := enabled("Foo")
	d.StyleSheets = []string{"css/b.css", "/css/a.css"}
	d.Scripts = []string{"js/x.js"}

	if err := f.loader.Register([]Descriptor{d}, f.svc, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	got := f.loader.Registry().RenderStyleSheets()
	want := `<link rel="stylesheet" href="_content/Foo/css/b.css" /> <link rel="stylesheet" href="_content/Foo/css/a.css" />`
	if got != want {
		t.Fatalf("unexpected render:\n got %s\nwant %s", got, want)
	}
}

func TestMarkupInReferenceIsRejectedBeforeManifestCheck(t *testing.T) {
	for _, ref := range []string{"<script>", `a".css`, "x>y.js", "", "/"} {
		f := newFixture(t, assetUnit("Foo", "app.css"))
		d := enabled("Foo")
		d.Scripts = []string{ref}

		err := f.loader.Register([]Descriptor{d}, f.svc, nil)
		if !IsKind(err, KindInvalidResourcePath) {
			t.Fatalf("ref %q: expected invalid_resource_path, got %v", ref, err)
		}
		if IsKind(err, KindResourceNotEmbedded) {
			t.Fatalf("ref %q: manifest check should not run", ref)
		}
	}
}

func TestMissingResourceIsReported(t *testing.T) {
	f := newFixture(t, assetUnit("Foo", "app.css"))
	d := enabled("Foo")
	d.StyleSheets = []string{"/missing.css"}

	err := f.loader.Register([]Descriptor{d}, f.svc, nil)
	if !IsKind(err, KindResourceNotEmbedded) {
		t.Fatalf("expected resource_not_embedded, got %v", err)
	}
}

func TestUnitWithoutAssetsRejectsResources(t *testing.T) {
	f := newFixture(t, &unit.Unit{Name: "Bare"})
	d := enabled("Bare")
	d.Scripts = []string{"site.js"}

	if err := f.loader.Register([]Descriptor{d}, f.svc, nil); !IsKind(err, KindResourceNotEmbedded) {
		t.Fatalf("expected resource_not_embedded, got %v", err)
	}
}

func TestUnitNameFromLink(t *testing.T) {
	name, err := unitNameFromLink(ScriptTag("_content/Acme.Hello/js/site.js"))
	if err != nil || name != "Acme.Hello" {
		t.Fatalf("unexpected result %q %v", name, err)
	}
	for _, tag := range []string{`<script src="/js/site.js"></script>`, "_content/Foo", "_content//x.js"} {
		if _, err := unitNameFromLink(tag); !IsKind(err, KindMalformedResourceLink) {
			t.Fatalf("tag %q: expected malformed_resource_link, got %v", tag, err)
		}
	}
}

func TestMalformedLinkFailsActivation(t *testing.T) {
	f := newFixture(t)
	f.loader.Registry().AddScriptLink(`<script src="/broken.js"></script>`)

	if _, err := f.loader.Activate(f.runtime(), nil); !IsKind(err, KindMalformedResourceLink) {
		t.Fatalf("expected malformed_resource_link, got %v", err)
	}
	if !f.loader.Registry().IsEmpty() {
		t.Fatalf("registry must be cleared even when activation fails")
	}
}

func TestActivationComposesProvidersByPriority(t *testing.T) {
	host := fstest.MapFS{"app.css": &fstest.MapFile{Data: []byte("host")}}
	f := newFixture(t,
		assetUnit("Foo", "app.css", "shared.js"),
		assetUnit("Bar", "shared.js"),
		&unit.Unit{Name: "Bare"},
	)
	foo, bar := enabled("Foo"), enabled("Bar")
	foo.StyleSheets = []string{"/app.css"}
	bar.Scripts = []string{"shared.js"}
	modules := []Descriptor{foo, bar, enabled("Bare")}

	if err := f.loader.Register(modules, f.svc, nil); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	rt := f.runtime()
	rt.Static = static.NewSlot(namedFS{MapFS: host, name: "dir:host"})

	snap, err := f.loader.Activate(rt, modules)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	wantSources := []string{"unit:Bar", "unit:Foo", "dir:host"}
	if diff := cmp.Diff(wantSources, snap.Providers); diff != "" {
		t.Fatalf("provider order mismatch (-want +got):\n%s", diff)
	}

	cases := map[string]string{
		"app.css":                "Foo:app.css",
		"shared.js":              "Bar:shared.js",
		"_content/Foo/shared.js": "Foo:shared.js",
		"/_content/Foo/app.css":  "Foo:app.css",
		"_content/Bar/shared.js": "Bar:shared.js",
	}
	for name, want := range cases {
		file, err := rt.Static.Open(name)
		if err != nil {
			t.Fatalf("open %s failed: %v", name, err)
		}
		data, _ := io.ReadAll(file)
		file.Close()
		if string(data) != want {
			t.Fatalf("open %s: got %q want %q", name, data, want)
		}
	}

	if snap.StyleSheets != `<link rel="stylesheet" href="_content/Foo/app.css" />` {
		t.Fatalf("unexpected rendered styles %q", snap.StyleSheets)
	}
}

// namedFS 为测试中的宿主根目录提供 Describe。
type namedFS struct {
	fstest.MapFS
	name string
}

func (n namedFS) Describe() string { return n.name }
