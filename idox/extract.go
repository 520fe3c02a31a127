package idox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
)

// 按标签缓存编译好的XPath表达式，详情页的标签是固定的几个
var exprCache sync.Map // label -> *xpath.Expr

func valueExpr(label string) (*xpath.Expr, error) {
	if e, ok := exprCache.Load(label); ok {
		return e.(*xpath.Expr), nil
	}
	e, err := xpath.Compile(".//th[contains(text(), " + xpathLiteral(label) + ")]/following-sibling::td")
	if err != nil {
		return nil, err
	}
	exprCache.Store(label, e)
	return e, nil
}

// 把任意字符串转成XPath字符串字面量，同时含有单双引号时使用concat拼接
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}

/*
输入一个表格和一个列标签，输出标签对应的值和是否存在

该方法用于读取详情页的横向表格：找到第一个文本包含label的th（区分大小写的子串匹配），返回同一行中紧随其后的td去掉首尾空白后的文本

没有匹配的表头或值为空时返回false，不修改文档，重复调用结果相同
*/
func TableValue(table *goquery.Selection, label string) (string, bool) {
	expr, err := valueExpr(label)
	if err != nil {
		return "", false
	}
	for _, n := range table.Nodes {
		td := htmlquery.QuerySelector(n, expr)
		if td == nil {
			continue
		}
		v := strings.TrimSpace(htmlquery.InnerText(td))
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

// 取值的简写，不存在时返回空串
func tableString(table *goquery.Selection, label string) string {
	v, _ := TableValue(table, label)
	return v
}
