package workerengine

import (
	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

type Option func(opts *options)

// 爬虫配置选项
type options struct {
	WorkCount     int            // 工作协程数，用于控制并发量
	Fetcher       spider.Fetcher // 任务未指定采集器时使用
	Storage       spider.DataRepository
	Logger        *zap.Logger
	Seeds         []*spider.Task // 初始种子任务
	Retry         bool           // 首次失败的请求是否重新调度一次
	scheduler     Scheduler
	reqRepository spider.ReqHistoryRepository
}

var defaultOptions = options{
	Logger:    zap.NewNop(),
	WorkCount: 4,
}

func WithReqRepository(reqRepository spider.ReqHistoryRepository) Option {
	return func(opts *options) {
		opts.reqRepository = reqRepository
	}
}

func WithStorage(s spider.DataRepository) Option {
	return func(opts *options) {
		opts.Storage = s
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithFetcher(fetcher spider.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithSeeds(seed []*spider.Task) Option {
	return func(opts *options) {
		opts.Seeds = seed
	}
}

func WithScheduler(scheduler Scheduler) Option {
	return func(opts *options) {
		opts.scheduler = scheduler
	}
}

func WithRetry(retry bool) Option {
	return func(opts *options) {
		opts.Retry = retry
	}
}
