package spider

import "sync"

type ReqHistoryRepository interface {
	/*
	   输入一个或多个请求，无输出

	   该方法用于将一个或多个请求添加到已访问的请求列表中
	*/
	AddVisited(reqs ...*Request)
	DeleteVisited(req *Request)
	/*
	   输入一个请求，输出一个布尔值，true表示首次失败允许重试，false表示已失败过

	   该方法用于记录一次失败，任务不允许重复爬取时会同时将请求移出已访问列表，使重试请求不会被去重拦截
	*/
	AddFailures(req *Request) bool
	DeleteFailures(req *Request)
	HasVisited(req *Request) bool
	// 请求未访问过时标记为已访问并返回true，检查和标记是原子的，用于多个工作协程并发去重
	Visit(req *Request) bool
	// 返回记录在案的失败请求数
	Failures() int
}

type reqHistory struct {
	mu       sync.Mutex
	visited  map[string]struct{}
	failures map[string]int // 失败请求id -> 失败次数
}

// 创建一个基于内存的请求历史仓库
func NewReqHistoryRepository() ReqHistoryRepository {
	return &reqHistory{
		visited:  make(map[string]struct{}, 100),
		failures: make(map[string]int, 16),
	}
}

func (r *reqHistory) HasVisited(req *Request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.visited[req.Unique()]
	return ok
}

func (r *reqHistory) Visit(req *Request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	unique := req.Unique()
	if _, ok := r.visited[unique]; ok {
		return false
	}
	r.visited[unique] = struct{}{}
	return true
}

func (r *reqHistory) AddVisited(reqs ...*Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, req := range reqs {
		r.visited[req.Unique()] = struct{}{}
	}
}

func (r *reqHistory) DeleteVisited(req *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.visited, req.Unique())
}

func (r *reqHistory) AddFailures(req *Request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	unique := req.Unique()
	if req.Task != nil && !req.Task.Reload {
		delete(r.visited, unique)
	}
	r.failures[unique]++

	return r.failures[unique] == 1
}

func (r *reqHistory) DeleteFailures(req *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.failures, req.Unique())
}

func (r *reqHistory) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.failures)
}
