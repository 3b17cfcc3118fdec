package server

import (
	"net"
	"net/http"
	"time"

	"github.com/any-hub/modhost/internal/config"
)

// HTTPClientService 是宿主预先注册的共享 http.Client 的服务名。
const HTTPClientService = "http.client"

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewHTTPClient 返回供模块共享的 http.Client，模块通过服务集合获取而不是各自创建。
func NewHTTPClient(cfg *config.Config) *http.Client {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Global.HTTPClientTimeout.DurationValue() > 0 {
		timeout = cfg.Global.HTTPClientTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
