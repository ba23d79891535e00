package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout 开放平台单次请求默认超时
const DefaultTimeout = 15 * time.Second

// NewOpenAPIClient 创建访问开放平台的 Resty 客户端
// 不做自动重试，失败交给上层按策略处理
func NewOpenAPIClient(timeout time.Duration, proxyURL string) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "Resto-Supplier-Sync/1.0")

	// 只要配置了代理地址就挂载
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	return client
}
