package plugin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/any-hub/modhost/internal/unit"
)

func TestRegistryClearIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.AddRoutedUnit(&unit.Unit{Name: "Foo"})
	reg.AddStyleSheetLink(StyleSheetTag("_content/Foo/a.css"))
	reg.AddScriptLink(ScriptTag("_content/Foo/a.js"))
	reg.AddExternalLink(`<script src="https://cdn.example.com/x.js"></script>`)

	reg.Clear()
	if !reg.IsEmpty() {
		t.Fatalf("registry should be empty after Clear")
	}
	reg.Clear()
	if !reg.IsEmpty() || reg.RenderScripts() != "" {
		t.Fatalf("second Clear should be a no-op")
	}
}

func TestRegistryRoutedUnitsDeduplicate(t *testing.T) {
	reg := NewRegistry()
	foo := &unit.Unit{Name: "Foo", Version: "1.0.0"}
	reg.AddRoutedUnit(foo)
	reg.AddRoutedUnit(&unit.Unit{Name: "foo", Version: "1.0.0"})
	reg.AddRoutedUnit(&unit.Unit{Name: "Bar"})
	reg.AddRoutedUnit(nil)

	got := reg.RoutedUnits()
	if len(got) != 2 || got[0] != foo || got[1].Name != "Bar" {
		t.Fatalf("unexpected routed units %v", got)
	}
}

func TestRegistryRendersWithSingleSpace(t *testing.T) {
	reg := NewRegistry()
	reg.AddScriptLink(ScriptTag("_content/A/a.js"))
	reg.AddScriptLink(ScriptTag("_content/B/b.js"))

	want := `<script src="_content/A/a.js"></script> <script src="_content/B/b.js"></script>`
	if got := reg.RenderScripts(); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestIsKindWalksAggregates(t *testing.T) {
	inner := &Error{Kind: KindResourceNotEmbedded, Unit: "Foo", Resource: "a.css"}
	agg := ActivationErrors{
		errors.New("plain"),
		fmt.Errorf("wrapped: %w", inner),
	}
	if !IsKind(agg, KindResourceNotEmbedded) {
		t.Fatalf("IsKind should find wrapped error inside aggregate")
	}
	if IsKind(agg, KindUnitNotFound) {
		t.Fatalf("IsKind should not report missing kinds")
	}
	var pe *Error
	if !errors.As(agg, &pe) || pe != inner {
		t.Fatalf("errors.As should reach the plugin error")
	}
	if IsKind(nil, KindUnitNotFound) {
		t.Fatalf("nil error has no kind")
	}
}

func TestStateString(t *testing.T) {
	if StateServicesConfigured.String() != "services_configured" || State(99).String() != "unknown" {
		t.Fatalf("unexpected state names")
	}
}
