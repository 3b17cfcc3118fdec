package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/modhost/internal/plugin"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/unit"
)

// Diagnostics 汇总 /-/modules 需要的只读数据。
type Diagnostics struct {
	Catalog  *unit.Catalog
	Snapshot *plugin.Snapshot
	Services *services.Collection
}

// RegisterModuleRoutes 暴露 /-/modules 诊断接口，供运维查询已加载单元、模块状态与资源链接。
func RegisterModuleRoutes(app *fiber.App, diag Diagnostics) {
	if app == nil || diag.Catalog == nil {
		return
	}
	snap := diag.Snapshot
	if snap == nil {
		snap = &plugin.Snapshot{}
	}

	app.Get("/-/modules", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"units":        encodeUnits(diag.Catalog.List(), snap.RoutedUnits),
			"modules":      encodeSummaries(snap.Modules),
			"style_sheets": nonNil(snap.StyleSheetLinks),
			"scripts":      nonNil(snap.ScriptLinks),
			"external":     nonNil(snap.ExternalLinks),
			"routed_units": nonNil(snap.RoutedUnits),
			"providers":    nonNil(snap.Providers),
		}
		if diag.Services != nil {
			payload["services"] = diag.Services.Snapshot()
		}
		return c.JSON(payload)
	})

	app.Get("/-/modules/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unit_name_required"})
		}
		u, ok := diag.Catalog.Lookup(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unit_not_found"})
		}
		encoded := encodeUnit(u, snap.RoutedUnits)
		return c.JSON(fiber.Map{
			"unit":    encoded,
			"modules": encodeSummaries(modulesOf(u, snap.Modules)),
		})
	})
}

type unitPayload struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	FullName     string   `json:"full_name"`
	Location     string   `json:"location,omitempty"`
	Linked       bool     `json:"linked"`
	Routed       bool     `json:"routed"`
	Dependencies []string `json:"dependencies"`
	EntryPoints  []string `json:"entry_points"`
	Assets       []string `json:"assets"`
}

type modulePayload struct {
	Locator  string `json:"locator"`
	Unit     string `json:"unit"`
	TypeName string `json:"type_name"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

func encodeUnits(units []*unit.Unit, routed []string) []unitPayload {
	result := make([]unitPayload, 0, len(units))
	for _, u := range units {
		result = append(result, encodeUnit(u, routed))
	}
	return result
}

func encodeUnit(u *unit.Unit, routed []string) unitPayload {
	entries := make([]string, 0, len(u.EntryPoints))
	for name := range u.EntryPoints {
		entries = append(entries, name)
	}
	sort.Strings(entries)

	payload := unitPayload{
		Name:         u.Name,
		Version:      u.Version,
		FullName:     u.FullName(),
		Location:     u.Location,
		Linked:       u.Location == "",
		Dependencies: nonNil(u.Dependencies),
		EntryPoints:  entries,
		Assets:       nonNil(u.SortedManifestNames()),
	}
	for _, name := range routed {
		if strings.EqualFold(name, u.Name) {
			payload.Routed = true
			break
		}
	}
	return payload
}

func encodeSummaries(mods []plugin.Summary) []modulePayload {
	result := make([]modulePayload, 0, len(mods))
	for _, m := range mods {
		item := modulePayload{
			Locator:  m.Locator,
			Unit:     m.Unit,
			TypeName: m.TypeName,
			State:    m.State.String(),
		}
		if m.Err != nil {
			item.Error = m.Err.Error()
		}
		result = append(result, item)
	}
	return result
}

func modulesOf(u *unit.Unit, mods []plugin.Summary) []plugin.Summary {
	var out []plugin.Summary
	for _, m := range mods {
		if strings.EqualFold(unit.SimpleName(m.Unit), u.Name) {
			out = append(out, m)
		}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string(nil), values...)
}
