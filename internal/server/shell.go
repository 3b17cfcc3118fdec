package server

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/modhost/internal/plugin"
)

// ShellData 是宿主首页渲染所需的数据。
type ShellData struct {
	Title string
	// StyleSheets/Scripts/External 是激活阶段渲染好的标签片段，已在注册时校验过引用。
	StyleSheets template.HTML
	Scripts     template.HTML
	External    template.HTML
	RoutedUnits []string
	Modules     []plugin.Summary
}

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>{{.Title}}</title>
{{.StyleSheets}}
{{.External}}
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .RoutedUnits}}
<nav>
<ul>
{{- range .RoutedUnits}}
<li><a href="/{{.}}/">{{.}}</a></li>
{{- end}}
</ul>
</nav>
{{- end}}
{{- if .Modules}}
<ul class="modules">
{{- range .Modules}}
<li>{{.TypeName}} ({{.Unit}}): {{.State}}</li>
{{- end}}
</ul>
{{- end}}
{{.Scripts}}
</body>
</html>
`))

// NewShellData 把激活快照转换为首页数据。
func NewShellData(title string, snap *plugin.Snapshot) ShellData {
	data := ShellData{Title: title}
	if snap == nil {
		return data
	}
	data.StyleSheets = template.HTML(snap.StyleSheets)
	data.Scripts = template.HTML(snap.Scripts)
	data.External = template.HTML(snap.External)
	data.RoutedUnits = append([]string(nil), snap.RoutedUnits...)
	data.Modules = append([]plugin.Summary(nil), snap.Modules...)
	return data
}

// RenderShell 渲染首页 HTML。
func RenderShell(data ShellData) ([]byte, error) {
	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MountShell 注册 GET /，页面在挂载时渲染一次。
func MountShell(app *fiber.App, data ShellData) error {
	page, err := RenderShell(data)
	if err != nil {
		return err
	}
	app.Get("/", func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(page)
	})
	return nil
}
