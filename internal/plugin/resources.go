package plugin

import (
	"fmt"
	"strings"

	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// StyleSheetTag 生成样式表标签。
func StyleSheetTag(href string) string {
	return fmt.Sprintf(`<link rel="stylesheet" href="%s" />`, href)
}

// ScriptTag 生成脚本标签。
func ScriptTag(src string) string {
	return fmt.Sprintf(`<script src="%s"></script>`, src)
}

// registerResources 校验并格式化模块声明的样式表与脚本，按声明顺序追加到 Registry。
func registerResources(reg *Registry, u *unit.Unit, available map[string]struct{}, d Descriptor) error {
	for _, ref := range d.StyleSheets {
		link, err := resourceLink(u, available, d, ref)
		if err != nil {
			return err
		}
		reg.AddStyleSheetLink(StyleSheetTag(link))
	}
	for _, ref := range d.Scripts {
		link, err := resourceLink(u, available, d, ref)
		if err != nil {
			return err
		}
		reg.AddScriptLink(ScriptTag(link))
	}
	return nil
}

// resourceLink 把声明的引用转换为 _content/<Unit>/... 链接。
// 以 / 开头与相对写法都必须在单元的嵌入清单中存在。
func resourceLink(u *unit.Unit, available map[string]struct{}, d Descriptor, ref string) (string, error) {
	if containsMarkup(ref) {
		return "", &Error{Kind: KindInvalidResourcePath, Locator: d.Locator, Unit: u.Name, Resource: ref}
	}

	var link string
	if strings.HasPrefix(ref, "/") {
		link = static.ContentPrefix + u.Name + ref
	} else {
		link = static.ContentPrefix + u.Name + "/" + ref
	}

	key := unit.ManifestName(u.Name, unit.AssetRoot+"/"+strings.TrimPrefix(ref, "/"))
	if _, ok := available[key]; !ok {
		return "", &Error{Kind: KindResourceNotEmbedded, Locator: d.Locator, Unit: u.Name, Resource: ref}
	}
	return link, nil
}

// containsMarkup 拒绝空引用以及可能注入到生成标签中的字符。
func containsMarkup(ref string) bool {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || trimmed == "/" {
		return true
	}
	return strings.ContainsAny(ref, `<>"`)
}

// unitNameFromLink 从已格式化的标签中取出 _content/ 之后到下一个 / 之前的单元名。
func unitNameFromLink(tag string) (string, error) {
	idx := strings.Index(tag, static.ContentPrefix)
	if idx < 0 {
		return "", &Error{Kind: KindMalformedResourceLink, Resource: tag}
	}
	rest := tag[idx+len(static.ContentPrefix):]
	end := strings.Index(rest, "/")
	if end <= 0 {
		return "", &Error{Kind: KindMalformedResourceLink, Resource: tag}
	}
	return rest[:end], nil
}
