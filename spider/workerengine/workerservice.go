package workerengine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

type WorkerService interface {
	Run(ctx context.Context) error
	Stats() Stats
}

// 引擎运行统计
type Stats struct {
	Requests int64 `json:"requests"` // 已发出的请求数
	Failures int64 `json:"failures"` // 抓取失败的请求数
	Items    int64 `json:"items"`    // 交给存储器的数据单元数
}

type workerService struct {
	out      chan spider.ParseResult
	inflight sync.WaitGroup // 尚未处理完的请求数，归零时本次爬取结束

	requests atomic.Int64
	failures atomic.Int64
	items    atomic.Int64

	options
}

/*
输入多个配置选项，输出一个workerService实例和错误

该方法用于创建一个新的引擎实例，初始化配置选项，为没有采集器与存储器的种子任务加上默认的采集器与存储器
*/
func NewWorkerService(opts ...Option) (*workerService, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkCount <= 0 {
		options.WorkCount = 1
	}
	if options.scheduler == nil {
		options.scheduler = NewSchedule()
	}
	if options.reqRepository == nil {
		options.reqRepository = spider.NewReqHistoryRepository()
	}

	e := &workerService{}
	e.out = make(chan spider.ParseResult)
	e.options = options

	for _, task := range e.Seeds {
		if task.Fetcher == nil {
			task.Fetcher = e.Fetcher
		}
		if task.Storage == nil {
			task.Storage = e.Storage
		}
	}

	return e, nil
}

/*
输入一个上下文，输出一个错误

该方法用于启动引擎：开启调度协程和多个工作协程，推送种子任务的根请求，然后在当前协程处理解析结果，直到没有在途请求或上下文结束
*/
func (c *workerService) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.scheduler.Schedule(ctx)
	for i := 0; i < c.WorkCount; i++ {
		go c.CreateWork(ctx)
	}

	c.handleSeeds(ctx)

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	return c.HandleResult(ctx, done)
}

func (c *workerService) Stats() Stats {
	return Stats{
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
		Items:    c.items.Load(),
	}
}

// 生成种子任务的根请求，并为每个根请求绑定所属任务
func (c *workerService) handleSeeds(ctx context.Context) {
	var reqs []*spider.Request
	for _, task := range c.Seeds {
		if task.Rule.Root == nil {
			c.Logger.Error("task has no root rule", zap.String("task name", task.Name))
			continue
		}
		rootreqs, err := task.Rule.Root()
		if err != nil {
			c.Logger.Error("get root failed",
				zap.String("task name", task.Name),
				zap.Error(err),
			)
			continue
		}

		for _, req := range rootreqs {
			req.Task = task
		}

		reqs = append(reqs, rootreqs...)
	}
	c.push(ctx, reqs...)
}

// 在途计数必须在推送之前增加，保证子请求入队前父请求不会让计数归零
func (c *workerService) push(ctx context.Context, reqs ...*spider.Request) {
	if len(reqs) == 0 {
		return
	}
	c.inflight.Add(len(reqs))
	go c.scheduler.Push(ctx, reqs...)
}

// 工作协程：循环从调度器获取请求并处理，上下文结束时退出
func (c *workerService) CreateWork(ctx context.Context) {
	for {
		req := c.scheduler.Pull(ctx)
		if req == nil {
			return
		}
		c.process(ctx, req)
	}
}

/*
输入一个上下文和一个请求，无输出

该方法用于处理单个请求：校验深度和域名，去重，抓取页面，调用规则的解析函数，将新请求推入调度器，将解析结果推入结果通道

抓取失败时交给SetFailure处理，解析函数的panic会被恢复并记录，不影响其他请求
*/
func (c *workerService) process(ctx context.Context, req *spider.Request) {
	defer c.inflight.Done()
	defer func() {
		if err := recover(); err != nil {
			c.Logger.Error("worker panic",
				zap.Any("err", err),
				zap.String("url", req.Url),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	if err := req.Check(); err != nil {
		c.Logger.Debug("check failed",
			zap.Error(err),
			zap.String("url", req.Url),
		)

		return
	}

	if err := req.CheckDomain(); err != nil {
		c.Logger.Warn("request filtered",
			zap.Error(err),
			zap.String("url", req.Url),
		)

		return
	}

	rule, ok := req.Task.Rule.Trunk[req.RuleName]
	if !ok || rule == nil || rule.ParseFunc == nil {
		c.Logger.Error("rule not found",
			zap.String("task", req.Task.Name),
			zap.String("rule", req.RuleName),
		)

		return
	}

	if req.Task.Reload {
		c.reqRepository.AddVisited(req)
	} else if !c.reqRepository.Visit(req) {
		c.Logger.Debug("request has visited",
			zap.String("url", req.Url),
		)

		return
	}
	c.requests.Add(1)

	resp, err := req.Fetch(ctx)
	if err != nil {
		c.Logger.Error("can't fetch ",
			zap.Error(err),
			zap.String("url", req.Url),
			zap.String("rule", req.RuleName),
		)
		c.failures.Add(1)
		c.SetFailure(ctx, req, rule, err)

		return
	}

	result, err := rule.ParseFunc(&spider.Context{
		Body: resp.Body,
		Req:  req,
		URL:  resp.URL,
	})
	if err != nil {
		c.Logger.Error("ParseFunc failed ",
			zap.Error(err),
			zap.String("url", req.Url),
			zap.String("rule", req.RuleName),
		)

		return
	}

	for _, r := range result.Requests {
		if r.Task == nil {
			r.Task = req.Task
		}
	}
	c.push(ctx, result.Requests...)

	if len(result.Items) > 0 {
		select {
		case c.out <- result:
		case <-ctx.Done():
		}
	}
}

/*
输入一个上下文、一个请求、请求对应的规则和失败原因，无输出

该方法用于处理失败请求：开启重试时首次失败的请求会重新推送到调度器，否则调用规则的错误回调
*/
func (c *workerService) SetFailure(ctx context.Context, req *spider.Request, rule *spider.Rule, err error) {
	first := c.reqRepository.AddFailures(req)
	if c.Retry && first {
		c.push(ctx, req)
		return
	}

	if rule.ErrFunc != nil {
		rule.ErrFunc(req, err)
	}
}

/*
输入一个上下文和结束信号，输出一个错误

该方法用于处理解析结果，循环从结果通道中获取解析结果，DataCell交给所属任务的存储器保存，没有存储器时打印数据项；结束时刷新所有带缓冲的存储器
*/
func (c *workerService) HandleResult(ctx context.Context, done <-chan struct{}) error {
	for {
		select {
		case result := <-c.out:
			for _, item := range result.Items {
				c.items.Add(1)
				d, ok := item.(*spider.DataCell)
				if !ok || d.Task == nil || d.Task.Storage == nil {
					c.Logger.Sugar().Info("get result: ", item)
					continue
				}
				if err := d.Task.Storage.Save(d); err != nil {
					c.Logger.Error("save result failed",
						zap.String("table", d.GetTableName()),
						zap.Error(err),
					)
				}
			}
		case <-done:
			c.flush()
			return nil
		case <-ctx.Done():
			c.flush()
			return ctx.Err()
		}
	}
}

func (c *workerService) flush() {
	flushed := make(map[spider.Flusher]struct{})
	for _, task := range c.Seeds {
		f, ok := task.Storage.(spider.Flusher)
		if !ok {
			continue
		}
		if _, ok := flushed[f]; ok {
			continue
		}
		flushed[f] = struct{}{}
		if err := f.Flush(); err != nil {
			c.Logger.Error("flush storage failed", zap.Error(err))
		}
	}
}
