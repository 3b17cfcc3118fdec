package plugin

import (
	"fmt"
	"strings"
)

// Kind 区分插件错误的类别。
type Kind string

const (
	KindUnitNotFound              Kind = "unit_not_found"
	KindDependencyLoadFailed      Kind = "dependency_load_failed"
	KindEntryPointNotFound        Kind = "entry_point_not_found"
	KindModuleConstructionFailed  Kind = "module_construction_failed"
	KindModuleConfigurationFailed Kind = "module_configuration_failed"
	KindModuleActivationFailed    Kind = "module_activation_failed"
	KindInvalidResourcePath       Kind = "invalid_resource_path"
	KindResourceNotEmbedded       Kind = "resource_not_embedded"
	KindMalformedResourceLink     Kind = "malformed_resource_link"
)

// Error 是加载与生命周期失败的统一错误类型，携带出错模块的定位信息与底层原因。
type Error struct {
	Kind     Kind
	Locator  string
	Unit     string
	TypeName string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	switch e.Kind {
	case KindUnitNotFound:
		fmt.Fprintf(&b, ": 无法解析单元 %s", e.Locator)
	case KindDependencyLoadFailed:
		fmt.Fprintf(&b, ": 模块 %s 的依赖加载失败", e.Locator)
	case KindEntryPointNotFound:
		fmt.Fprintf(&b, ": 单元 %s 中不存在入口 %s", e.Unit, e.TypeName)
	case KindModuleConstructionFailed:
		fmt.Fprintf(&b, ": 构造模块 %s 失败", e.TypeName)
	case KindModuleConfigurationFailed:
		fmt.Fprintf(&b, ": 模块 %s 注册服务失败", e.TypeName)
	case KindModuleActivationFailed:
		fmt.Fprintf(&b, ": 模块 %s 激活失败", e.TypeName)
	case KindInvalidResourcePath:
		fmt.Fprintf(&b, ": 资源路径 %q 不合法", e.Resource)
	case KindResourceNotEmbedded:
		fmt.Fprintf(&b, ": 单元 %s 未嵌入资源 %s", e.Unit, e.Resource)
	case KindMalformedResourceLink:
		fmt.Fprintf(&b, ": 资源链接 %q 缺少 _content/<unit>/ 段", e.Resource)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断错误链（含聚合错误）中是否存在指定类别的插件错误。
func IsKind(err error, kind Kind) bool {
	switch x := err.(type) {
	case nil:
		return false
	case *Error:
		if x.Kind == kind {
			return true
		}
		return IsKind(x.Err, kind)
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if IsKind(inner, kind) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsKind(x.Unwrap(), kind)
	}
	return false
}

// ActivationErrors 汇总激活阶段各模块独立失败的错误。
type ActivationErrors []error

func (e ActivationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, err := range e {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%d 个模块激活失败: %s", len(e), strings.Join(parts, "; "))
}

// Unwrap 让 errors.Is/As 可以遍历每个模块的错误。
func (e ActivationErrors) Unwrap() []error {
	return []error(e)
}

func newError(kind Kind, d Descriptor, err error) *Error {
	return &Error{Kind: kind, Locator: d.Locator, Err: err}
}
