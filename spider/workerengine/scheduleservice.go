package workerengine

import (
	"context"

	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

// 为调度器提供了统一的接口规范，使得不同调度器实现都要遵循这些方法
type Scheduler interface {
	/*
		输入一个上下文，无输出

		该方法用于启动调度器，维护两个队列，优先处理优先队列中的请求，当收到新请求时，根据请求的优先级将其添加到对应的队列中，并将请求分发给工作协程，上下文结束时退出
	*/
	Schedule(ctx context.Context)
	// 向调度器提交新的请求，上下文结束时放弃提交
	Push(ctx context.Context, reqs ...*spider.Request)
	// 从调度器中获取一个请求，上下文结束时返回nil
	Pull(ctx context.Context) *spider.Request
}

// 调度器：负责接收新的请求、对请求进行优先级分类、将请求分发给工作协程
type Schedule struct {
	requestCh   chan *spider.Request // 任务提交通道，用于接收新的请求
	workerCh    chan *spider.Request // 工作通道，工作协程从该通道获取任务
	priReqQueue []*spider.Request    // 优先队列
	reqQueue    []*spider.Request    // 普通队列
	Logger      *zap.Logger
}

func NewSchedule() *Schedule {
	s := &Schedule{}
	s.requestCh = make(chan *spider.Request)
	s.workerCh = make(chan *spider.Request)
	s.Logger = zap.NewNop()

	return s
}

func (s *Schedule) Push(ctx context.Context, reqs ...*spider.Request) {
	for _, req := range reqs {
		select {
		case s.requestCh <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Schedule) Pull(ctx context.Context) *spider.Request {
	select {
	case r := <-s.workerCh:
		return r
	case <-ctx.Done():
		return nil
	}
}

func (s *Schedule) Schedule(ctx context.Context) {
	var ch chan *spider.Request

	var req *spider.Request

	for {
		if req == nil && len(s.priReqQueue) > 0 {
			req = s.priReqQueue[0]
			s.priReqQueue = s.priReqQueue[1:]
			ch = s.workerCh
		}

		if req == nil && len(s.reqQueue) > 0 {
			req = s.reqQueue[0]
			s.reqQueue = s.reqQueue[1:]
			ch = s.workerCh
		}

		select {
		case r := <-s.requestCh:
			if r.Priority > 0 {
				s.priReqQueue = append(s.priReqQueue, r)
			} else {
				s.reqQueue = append(s.reqQueue, r)
			}
		case ch <- req:
			// ch为nil时该分支永远不会被选中，只等待新请求
			req = nil
			ch = nil
		case <-ctx.Done():
			s.Logger.Debug("scheduler stopped",
				zap.Int("pending", len(s.priReqQueue)+len(s.reqQueue)))
			return
		}
	}
}
