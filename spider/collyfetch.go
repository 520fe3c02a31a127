package spider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dszqbsm/planning/proxy"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const collyResponseKey = "spider.response"

// 基于colly的采集器，colly负责cookie、编码检测和重定向，去重和调度仍由引擎负责
type CollyFetch struct {
	Timeout   time.Duration
	Proxy     proxy.ProxyFunc
	UserAgent string
	Logger    *zap.Logger

	once      sync.Once
	collector *colly.Collector
}

func (c *CollyFetch) init() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	opts := []colly.CollectorOption{
		// 详情页会被重复请求，去重交给引擎
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
		colly.IgnoreRobotsTxt(),
	}
	if c.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.UserAgent))
	}

	c.collector = colly.NewCollector(opts...)
	if c.Timeout > 0 {
		c.collector.SetRequestTimeout(c.Timeout)
	}
	if c.Proxy != nil {
		c.collector.SetProxyFunc(colly.ProxyFunc(c.Proxy))
	}

	c.collector.OnResponse(func(r *colly.Response) {
		out, ok := r.Ctx.GetAny(collyResponseKey).(*Response)
		if !ok {
			return
		}
		out.URL = r.Request.URL
		out.StatusCode = r.StatusCode
		out.Body = r.Body
	})
}

/*
输入一个上下文和一个请求，输出一个响应和一个错误

该方法用于通过colly同步发起请求，响应经由每个请求独立的colly上下文带回，因此可以被多个工作协程并发调用
*/
func (c *CollyFetch) Fetch(ctx context.Context, req *Request) (*Response, error) {
	c.once.Do(c.init)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Response{}
	cctx := colly.NewContext()
	cctx.Put(collyResponseKey, out)

	hdr := http.Header{}
	var body io.Reader
	if len(req.FormData) > 0 {
		body = strings.NewReader(req.FormData.Encode())
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.Task != nil && len(req.Task.Cookie) > 0 {
		hdr.Set("Cookie", req.Task.Cookie)
	}

	if err := c.collector.Request(req.method(), req.Url, body, cctx, hdr); err != nil {
		return nil, err
	}
	if out.URL == nil {
		return nil, errors.New("colly returned no response")
	}

	return out, nil
}
