package plugin

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// buildProviders 为贡献过资源或被配置为模块的单元重建嵌入资源提供者。
// 返回列表中索引越小优先级越高：后处理的单元排在前面，宿主自身的提供者垫底。
// 单元没有嵌入资源是正常情况，不会报错；只有资源链接格式损坏才返回错误。
func (l *Loader) buildProviders(host static.Provider, modules []Descriptor) ([]static.Provider, error) {
	var providers []static.Provider
	if host != nil {
		providers = append(providers, host)
	}

	processed := make(map[string]struct{})
	add := func(u *unit.Unit) {
		key := strings.ToLower(u.Name)
		if _, done := processed[key]; done {
			return
		}
		processed[key] = struct{}{}

		p, err := static.NewEmbeddedProvider(u)
		if err != nil {
			if !errors.Is(err, static.ErrNoManifest) {
				l.logger.WithFields(logrus.Fields{
					"action": "provider_build",
					"unit":   u.FullName(),
				}).WithError(err).Warn("构建嵌入资源提供者失败")
			}
			return
		}
		providers = append([]static.Provider{p}, providers...)
		l.logger.WithFields(logrus.Fields{
			"action": "provider_build",
			"unit":   u.FullName(),
		}).Debug("嵌入资源提供者已加入")
	}

	links := append(l.registry.StyleSheetLinks(), l.registry.ScriptLinks()...)
	for _, tag := range links {
		name, err := unitNameFromLink(tag)
		if err != nil {
			return nil, err
		}
		if _, done := processed[strings.ToLower(name)]; done {
			continue
		}
		u, err := l.resolver.ResolveName(name)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"action": "provider_build",
				"unit":   name,
			}).WithError(err).Warn("重新解析资源单元失败")
			processed[strings.ToLower(name)] = struct{}{}
			continue
		}
		add(u)
	}

	for _, d := range modules {
		if !d.Enabled {
			continue
		}
		u, err := l.resolver.Resolve(d.Locator)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"action":  "provider_build",
				"locator": d.Locator,
			}).WithError(err).Warn("重新解析模块单元失败")
			continue
		}
		add(u)
	}

	return providers, nil
}
