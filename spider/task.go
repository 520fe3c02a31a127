package spider

import (
	"time"

	"github.com/dszqbsm/planning/limiter"
	"github.com/dszqbsm/planning/proxy"
	"go.uber.org/zap"
)

// 一个任务实例，对应一个站点的一次爬取
type Task struct {
	Closed bool
	Rule   RuleTree // 任务的解析规则
	Options
}

/*
输入一个或多个配置，输出一个任务实例

该方法用于创建一个新的任务实例，根据传入的配置信息初始化任务实例的属性，并返回任务实例的指针。
*/
func NewTask(opts ...Option) *Task {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	d := &Task{}
	d.Options = options

	return d
}

type Options struct {
	Name           string   `json:"name"` // 任务名称，应保证唯一性
	URL            string   `json:"url"`
	AllowedDomains []string `json:"allowed_domains"`
	Cookie         string   `json:"cookie"`
	WaitTime       int64    `json:"wait_time"` // 随机休眠上限，毫秒
	Reload         bool     `json:"reload"`    // 网站是否可以重复爬取
	MaxDepth       int      `json:"max_depth"` // 0 不限制
	Timeout        time.Duration
	Proxy          proxy.ProxyFunc
	Fetcher        Fetcher
	Storage        DataRepository
	Limit          limiter.RateLimiter
	logger         *zap.Logger
}

var defaultOptions = Options{
	logger:   zap.NewNop(),
	WaitTime: 0,
	Reload:   false,
	MaxDepth: 0,
	Timeout:  10 * time.Second,
}

type Option func(opts *Options)

// 返回任务的日志器
func (o *Options) Logger() *zap.Logger {
	return o.logger
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithURL(url string) Option {
	return func(opts *Options) {
		opts.URL = url
	}
}

func WithAllowedDomains(domains ...string) Option {
	return func(opts *Options) {
		opts.AllowedDomains = domains
	}
}

func WithCookie(cookie string) Option {
	return func(opts *Options) {
		opts.Cookie = cookie
	}
}

func WithWaitTime(waitTime int64) Option {
	return func(opts *Options) {
		opts.WaitTime = waitTime
	}
}

func WithReload(reload bool) Option {
	return func(opts *Options) {
		opts.Reload = reload
	}
}

func WithFetcher(f Fetcher) Option {
	return func(opts *Options) {
		opts.Fetcher = f
	}
}

func WithStorage(s DataRepository) Option {
	return func(opts *Options) {
		opts.Storage = s
	}
}

func WithMaxDepth(maxDepth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = maxDepth
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

func WithProxy(proxy proxy.ProxyFunc) Option {
	return func(opts *Options) {
		opts.Proxy = proxy
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *Options) {
		opts.Limit = l
	}
}
