package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

type ProxyFunc func(*http.Request) (*url.URL, error)

var ErrEmptyProxyList = errors.New("proxy url list is empty")

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

// 按轮询顺序返回下一个代理服务器地址
func (r *roundRobinSwitcher) GetProxy(pr *http.Request) (*url.URL, error) {
	if len(r.proxyURLs) == 0 {
		return nil, ErrEmptyProxyList
	}
	index := atomic.AddUint32(&r.index, 1) - 1
	u := r.proxyURLs[index%uint32(len(r.proxyURLs))]
	return u, nil
}

/*
输入一个代理服务器地址列表，输出一个代理服务器切换函数和一个error。

该方法用于创建一个轮询调度的代理服务器切换函数，空白地址会被忽略，地址必须带有协议和主机
*/
func RoundRobinProxySwitcher(proxyURLs ...string) (ProxyFunc, error) {
	urls := make([]*url.URL, 0, len(proxyURLs))
	for _, u := range proxyURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		parsedU, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		if parsedU.Scheme == "" || parsedU.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", u)
		}
		urls = append(urls, parsedU)
	}
	if len(urls) < 1 {
		return nil, ErrEmptyProxyList
	}
	return (&roundRobinSwitcher{urls, 0}).GetProxy, nil
}
