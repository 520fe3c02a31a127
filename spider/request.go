package spider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMaxDepth       = errors.New("max depth limit reached")
	ErrDomainNotAllow = errors.New("domain not allowed")
)

// 表示解析结果
type ParseResult struct {
	Requests []*Request    // 从当前页面解析出的新请求
	Items    []interface{} // 从当前页面提取的有用数据
}

// 表示一个具体的HTTP请求
type Request struct {
	Task     *Task      // 所属的任务
	Url      string     // 请求的URL
	Method   string     // 请求的方法，GET或POST
	FormData url.Values // POST表单数据
	Depth    int        // 请求的深度，用于控制爬取的最大深度
	Priority int        // 请求的优先级，大于0的请求优先调度
	RuleName string     // 解析规则的名称
	TmpData  *Temp      // 在同一条请求链上传递的临时数据
}

/*
无输入，输出一个错误

该方法用于检查当前请求是否超过任务的最大请求深度，MaxDepth为0表示不限制深度
*/
func (r *Request) Check() error {
	if r.Task == nil || r.Task.MaxDepth <= 0 {
		return nil
	}
	if r.Depth > r.Task.MaxDepth {
		return ErrMaxDepth
	}
	return nil
}

/*
无输入，输出一个错误

该方法用于检查请求的域名是否在任务允许的域名列表中，列表为空表示不限制，子域名同样视为允许
*/
func (r *Request) CheckDomain() error {
	if r.Task == nil || len(r.Task.AllowedDomains) == 0 {
		return nil
	}
	u, err := url.Parse(r.Url)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", r.Url, err)
	}
	host := u.Hostname()
	for _, d := range r.Task.AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDomainNotAllow, host)
}

// 生成请求的唯一识别码，用于去重，POST请求的表单内容也参与计算
func (r *Request) Unique() string {
	block := md5.Sum([]byte(r.method() + r.Url + r.FormData.Encode()))
	return hex.EncodeToString(block[:])
}

func (r *Request) method() string {
	if r.Method == "" {
		return "GET"
	}
	return strings.ToUpper(r.Method)
}

/*
输入一个上下文，输出一个响应和一个错误

该方法用于在工作协程发起请求之前，通过任务的限速器限制请求速率，并进行随机休眠，最后调用任务的采集器发起请求
*/
func (r *Request) Fetch(ctx context.Context) (*Response, error) {
	task := r.Task
	if task.Limit != nil {
		if err := task.Limit.Wait(ctx); err != nil {
			return nil, err
		}
	}
	// 随机休眠，模拟人类行为
	if task.WaitTime > 0 {
		sleeptime := time.Duration(rand.Int63n(task.WaitTime)) * time.Millisecond
		select {
		case <-time.After(sleeptime):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if task.Fetcher == nil {
		return nil, errors.New("task has no fetcher")
	}
	return task.Fetcher.Fetch(ctx, r)
}
