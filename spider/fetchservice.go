package spider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dszqbsm/planning/proxy"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type FetchType int

const (
	BaseFetchType FetchType = iota
	BrowserFetchType
	CollyFetchType
)

// 将配置中的采集器名称转换为FetchType，未知名称退回到BrowserFetchType
func ParseFetchType(name string) FetchType {
	switch strings.ToLower(name) {
	case "base":
		return BaseFetchType
	case "colly":
		return CollyFetchType
	default:
		return BrowserFetchType
	}
}

// 响应内容，URL为跟随重定向后的最终地址
type Response struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

type Fetcher interface {
	/*
	   输入一个上下文和一个请求，输出一个响应和一个错误

	   该方法用于发起GET或POST请求，维护会话cookie，编码检测并转换为utf-8，非2xx状态码视为失败
	*/
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

type FetchOptions struct {
	Timeout   time.Duration
	Proxy     proxy.ProxyFunc
	UserAgent string
	Logger    *zap.Logger
}

/*
输入一个FetchType类型的参数和采集器配置，输出一个Fetcher接口类型的实例

该方法用于根据输入的FetchType选择不同的采集器实现，未知类型默认使用BrowserFetch
*/
func NewFetchService(typ FetchType, o FetchOptions) Fetcher {
	switch typ {
	case BaseFetchType:
		return &BaseFetch{Timeout: o.Timeout}
	case CollyFetchType:
		return &CollyFetch{Timeout: o.Timeout, Proxy: o.Proxy, UserAgent: o.UserAgent, Logger: o.Logger}
	default:
		return &BrowserFetch{Timeout: o.Timeout, Proxy: o.Proxy, UserAgent: o.UserAgent, Logger: o.Logger}
	}
}

// 随机User-Agent列表
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

func randomUA() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// 基础采集器：不设置代理和随机UA，仅维护cookie
type BaseFetch struct {
	Timeout time.Duration

	once   sync.Once
	client *http.Client
}

func (b *BaseFetch) Fetch(ctx context.Context, req *Request) (*Response, error) {
	b.once.Do(func() {
		jar, _ := cookiejar.New(nil)
		b.client = &http.Client{Timeout: b.Timeout, Jar: jar}
	})

	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	return do(b.client, httpReq, zap.L())
}

// 模拟浏览器的采集器：会话cookie、代理、随机或固定的User-Agent
type BrowserFetch struct {
	Timeout   time.Duration
	Proxy     proxy.ProxyFunc
	UserAgent string // 为空时每个请求随机选择
	Logger    *zap.Logger

	once   sync.Once
	client *http.Client
}

func (b *BrowserFetch) init() {
	if b.Logger == nil {
		b.Logger = zap.NewNop()
	}
	// 搜索表单的_csrf令牌和会话cookie绑定，所有请求共用一个cookie jar
	jar, _ := cookiejar.New(nil)
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if b.Proxy != nil {
		transport.Proxy = b.Proxy
	}
	b.client = &http.Client{
		Timeout:   b.Timeout,
		Jar:       jar,
		Transport: transport,
	}
}

/*
输入一个上下文和一个请求，输出一个响应和一个错误

该方法用于发送模拟人类行为的请求，设置代理服务器，设置User-Agent和任务Cookie，编码检测并转换为utf-8
*/
func (b *BrowserFetch) Fetch(ctx context.Context, request *Request) (*Response, error) {
	b.once.Do(b.init)

	req, err := newHTTPRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	if request.Task != nil && len(request.Task.Cookie) > 0 {
		req.Header.Set("Cookie", request.Task.Cookie)
	}

	ua := b.UserAgent
	if ua == "" {
		ua = randomUA()
	}
	req.Header.Set("User-Agent", ua)

	return do(b.client, req, b.Logger)
}

func newHTTPRequest(ctx context.Context, request *Request) (*http.Request, error) {
	var body io.Reader
	if len(request.FormData) > 0 {
		body = strings.NewReader(request.FormData.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, request.method(), request.Url, body)
	if err != nil {
		return nil, fmt.Errorf("get url failed:%w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return req, nil
}

func do(client *http.Client, req *http.Request, logger *zap.Logger) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("error status code:%d", resp.StatusCode)
	}

	bodyReader := bufio.NewReader(resp.Body)
	e := DeterminEncoding(bodyReader, logger)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())

	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, err
	}

	return &Response{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// 根据响应的前1024个字节判断页面编码，无法判断时按utf-8处理
func DeterminEncoding(r *bufio.Reader, logger *zap.Logger) encoding.Encoding {
	bytes, err := r.Peek(1024)

	if err != nil && len(bytes) == 0 {
		if err != io.EOF {
			logger.Error("fetch failed", zap.Error(err))
		}

		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(bytes, "")

	return e
}
