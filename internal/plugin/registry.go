package plugin

import (
	"strings"

	"github.com/any-hub/modhost/internal/unit"
)

// Registry 是注册阶段与激活阶段之间的交接状态，由宿主启动流程显式创建并按指针传递。
//
// 前置条件：两个阶段都在同一个启动 goroutine 上顺序执行，Registry 内部不加锁，
// 在并发宿主中复用时必须由调用方保证串行访问。
type Registry struct {
	routed   []*unit.Unit
	routedBy map[string]struct{}
	styles   []string
	scripts  []string
	external []string
	pending  []*Instance
}

// NewRegistry 创建空的交接状态。
func NewRegistry() *Registry {
	return &Registry{routedBy: make(map[string]struct{})}
}

// Clear 清空所有累积内容，重复调用没有额外效果。
func (r *Registry) Clear() {
	r.routed = nil
	r.routedBy = make(map[string]struct{})
	r.styles = nil
	r.scripts = nil
	r.external = nil
	r.pending = nil
}

// IsEmpty 表示当前没有任何累积内容。
func (r *Registry) IsEmpty() bool {
	return len(r.routed) == 0 && len(r.styles) == 0 && len(r.scripts) == 0 &&
		len(r.external) == 0 && len(r.pending) == 0
}

// AddRoutedUnit 记录需要挂载路由的单元，同一单元只记录一次。
func (r *Registry) AddRoutedUnit(u *unit.Unit) {
	if u == nil {
		return
	}
	key := strings.ToLower(u.FullName())
	if _, ok := r.routedBy[key]; ok {
		return
	}
	r.routedBy[key] = struct{}{}
	r.routed = append(r.routed, u)
}

// RoutedUnits 按登记顺序返回路由单元。
func (r *Registry) RoutedUnits() []*unit.Unit {
	return append([]*unit.Unit(nil), r.routed...)
}

// AddStyleSheetLink 追加一条已格式化的样式表标签。
func (r *Registry) AddStyleSheetLink(tag string) {
	r.styles = append(r.styles, tag)
}

// StyleSheetLinks 返回样式表标签副本。
func (r *Registry) StyleSheetLinks() []string {
	return append([]string(nil), r.styles...)
}

// AddScriptLink 追加一条已格式化的脚本标签。
func (r *Registry) AddScriptLink(tag string) {
	r.scripts = append(r.scripts, tag)
}

// ScriptLinks 返回脚本标签副本。
func (r *Registry) ScriptLinks() []string {
	return append([]string(nil), r.scripts...)
}

// AddExternalLink 追加一条外部资源标签（如 CDN 引用），原样输出到页面。
func (r *Registry) AddExternalLink(tag string) {
	r.external = append(r.external, tag)
}

// ExternalLinks 返回外部资源标签副本。
func (r *Registry) ExternalLinks() []string {
	return append([]string(nil), r.external...)
}

func (r *Registry) addPending(inst *Instance) {
	r.pending = append(r.pending, inst)
}

// Pending 返回等待激活的模块实例。
func (r *Registry) Pending() []*Instance {
	return append([]*Instance(nil), r.pending...)
}

func (r *Registry) clearPending() {
	r.pending = nil
}

// RenderStyleSheets 以空格拼接样式表标签。
func (r *Registry) RenderStyleSheets() string {
	return strings.Join(r.styles, " ")
}

// RenderScripts 以空格拼接脚本标签。
func (r *Registry) RenderScripts() string {
	return strings.Join(r.scripts, " ")
}

// RenderExternal 以空格拼接外部资源标签。
func (r *Registry) RenderExternal() string {
	return strings.Join(r.external, " ")
}
