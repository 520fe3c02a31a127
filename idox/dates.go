package idox

import (
	"fmt"
	"strings"
	"time"
)

const (
	// 详情页日期，例如"Mon 01 Jan 2024"
	DetailDateLayout = "Mon 2 Jan 2006"
	// 搜索表单日期
	SearchDateLayout = "02/01/2006"
	// 配置文件和命令行中的日期
	ConfigDateLayout = "2006-01-02"
)

/*
输入详情页中的日期文本，输出日期和一个错误

该方法用于解析详情页表格中的日期，空白文本表示没有该字段，返回nil且不报错；非空但无法解析的文本返回错误，由调用方决定如何处理
*/
func ParseDetailDate(raw string) (*time.Time, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DetailDateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse detail date %q: %w", raw, err)
	}
	return &t, nil
}

func FormatSearchDate(t time.Time) string {
	return t.Format(SearchDateLayout)
}

// 解析YYYY-MM-DD格式的日期
func ParseConfigDate(raw string) (time.Time, error) {
	t, err := time.Parse(ConfigDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// 去掉时分秒，只保留日历日期
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
