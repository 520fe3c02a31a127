package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// 限速器接口，统一了不同限速器的行为
type RateLimiter interface {
	Wait(context.Context) error // 阻塞调用者，直到可以继续执行或上下文被取消
	Limit() rate.Limit          // 返回限速器的速率限制
}

// 单条限速规则：EventDur秒内最多EventCount个请求，Bucket为令牌桶大小
type Rule struct {
	EventCount int `yaml:"eventCount"`
	EventDur   int `yaml:"eventDur"`
	Bucket     int `yaml:"bucket"`
}

/*
输入多条限速规则，输出一个限速器

该方法用于根据配置中的限速规则创建令牌桶限速器并组合成多限速器，没有规则或规则全部无效时返回不限速的限速器
*/
func FromRules(rules ...Rule) RateLimiter {
	var limits []RateLimiter
	for _, r := range rules {
		if r.EventCount <= 0 || r.EventDur <= 0 {
			continue
		}
		bucket := r.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		limits = append(limits, rate.NewLimiter(Per(r.EventCount, time.Duration(r.EventDur)*time.Second), bucket))
	}
	if len(limits) == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return Multi(limits...)
}

// 将多个限速器按速率限制从小到大排序，然后返回一个多限速器实例
func Multi(limiters ...RateLimiter) *multiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

// 多限速器，只有所有限速器都放行时才继续
type multiLimiter struct {
	limiters []RateLimiter
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// 返回最严格的速率限制，没有限速器时不限速
func (l *multiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}

// 指定时间段内允许eventCount个事件时，两个令牌之间的时间间隔
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}
