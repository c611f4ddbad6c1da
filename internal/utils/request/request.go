package request

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// Request 共享客户端，代理读取环境变量
var Request = New("")

// New builds a resty client with retries on 429/5xx. proxy overrides the
// environment proxy when set.
func New(proxy string) *resty.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return resty.New().
		SetTransport(transport).
		SetTimeout(defaultTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
}
