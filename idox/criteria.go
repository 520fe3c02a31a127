package idox

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDateRange = errors.New("start date must not be after end date")

// 一次爬取的搜索条件，创建后不可修改
type SearchCriteria struct {
	start  time.Time
	end    time.Time
	status ApplicationStatus
}

/*
输入起止日期和状态过滤条件，输出搜索条件和一个错误

该方法用于创建搜索条件，日期只保留到天，起始日期晚于结束日期时返回ErrInvalidDateRange
*/
func NewSearchCriteria(start, end time.Time, status ApplicationStatus) (SearchCriteria, error) {
	start, end = truncateDay(start), truncateDay(end)
	if start.After(end) {
		return SearchCriteria{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			start.Format(ConfigDateLayout), end.Format(ConfigDateLayout))
	}
	if !status.valid() {
		return SearchCriteria{}, fmt.Errorf("%w: %d", ErrUnknownStatus, int(status))
	}
	return SearchCriteria{start: start, end: end, status: status}, nil
}

// 默认搜索条件：当年1月1日到今天，不过滤状态
func DefaultSearchCriteria(now time.Time) SearchCriteria {
	end := truncateDay(now)
	start := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return SearchCriteria{start: start, end: end, status: StatusAll}
}

func (c SearchCriteria) Start() time.Time { return c.start }

func (c SearchCriteria) End() time.Time { return c.end }

func (c SearchCriteria) Status() ApplicationStatus { return c.status }

// 日志中展示的状态，不过滤时为all
func (c SearchCriteria) StatusLabel() string {
	if c.status == StatusAll {
		return "all"
	}
	return c.status.DisplayValue()
}
