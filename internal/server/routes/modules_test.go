package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/modhost/internal/plugin"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/unit"
)

func newDiagnosticsApp(t *testing.T) *fiber.App {
	t.Helper()
	catalog := unit.NewCatalog()
	units := []*unit.Unit{
		{
			Name:         "Acme.Hello",
			Version:      "1.2.0",
			Dependencies: []string{"Acme.Theme"},
			EntryPoints:  map[string]unit.Factory{"Acme.Hello.Module": func() (any, error) { return nil, nil }},
			Assets:       fstest.MapFS{"wwwroot/js/hello.js": &fstest.MapFile{Data: []byte("x")}},
		},
		{Name: "Acme.Theme"},
	}
	for _, u := range units {
		if err := catalog.Add(u); err != nil {
			t.Fatalf("add unit failed: %v", err)
		}
	}

	svc := services.New()
	svc.MustAdd("http.client", "client")

	app := fiber.New()
	RegisterModuleRoutes(app, Diagnostics{
		Catalog:  catalog,
		Services: svc,
		Snapshot: &plugin.Snapshot{
			ScriptLinks: []string{plugin.ScriptTag("_content/Acme.Hello/js/hello.js")},
			RoutedUnits: []string{"Acme.Hello"},
			Modules: []plugin.Summary{
				{Locator: "Acme.Hello", Unit: "Acme.Hello@1.2.0", TypeName: "Acme.Hello.Module", State: plugin.StateReleased},
				{Locator: "Acme.Broken", Unit: "Acme.Broken", TypeName: "Acme.Broken.Module", State: plugin.StateFailed, Err: errors.New("boom")},
			},
		},
	})
	return app
}

func TestModulesListing(t *testing.T) {
	app := newDiagnosticsApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/-/modules", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Units    []unitPayload     `json:"units"`
		Modules  []modulePayload   `json:"modules"`
		Scripts  []string          `json:"scripts"`
		Services map[string]string `json:"services"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload failed: %v (%s)", err, body)
	}
	if len(payload.Units) != 2 || payload.Units[0].Name != "Acme.Hello" || !payload.Units[0].Routed {
		t.Fatalf("unexpected units %+v", payload.Units)
	}
	if payload.Units[0].Assets[0] != "Acme.Hello.wwwroot.js.hello.js" {
		t.Fatalf("unexpected asset manifest %v", payload.Units[0].Assets)
	}
	if payload.Units[1].Routed || !payload.Units[1].Linked {
		t.Fatalf("theme should be linked and not routed: %+v", payload.Units[1])
	}
	if len(payload.Modules) != 2 || payload.Modules[1].State != "failed" || payload.Modules[1].Error != "boom" {
		t.Fatalf("unexpected modules %+v", payload.Modules)
	}
	if len(payload.Scripts) != 1 || payload.Services["http.client"] != "host" {
		t.Fatalf("unexpected scripts/services %v %v", payload.Scripts, payload.Services)
	}
}

func TestModuleDetail(t *testing.T) {
	app := newDiagnosticsApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/-/modules/acme.hello", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var payload struct {
		Unit    unitPayload     `json:"unit"`
		Modules []modulePayload `json:"modules"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload failed: %v (%s)", err, body)
	}
	if payload.Unit.FullName != "Acme.Hello@1.2.0" || len(payload.Modules) != 1 {
		t.Fatalf("unexpected detail %+v", payload)
	}
	if payload.Unit.EntryPoints[0] != "Acme.Hello.Module" {
		t.Fatalf("entry points should be listed: %v", payload.Unit.EntryPoints)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/modules/Acme.Missing", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown unit, got %d", resp.StatusCode)
	}
}
