package idox

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

const (
	fieldCSRF            = "_csrf"
	fieldCaseAddressType = "caseAddressType"
	fieldSearchType      = "searchType"
	fieldValidatedStart  = "date(applicationValidatedStart)"
	fieldValidatedEnd    = "date(applicationValidatedEnd)"
	fieldCaseStatus      = "caseStatus"
)

/*
输入搜索表单页面和搜索条件，输出表单提交地址和表单数据

该方法用于构建高级搜索的POST表单：从页面读取_csrf令牌并保留表单中其他隐藏字段，填入固定的地址类型、DD/MM/YYYY格式的起止日期，状态不为ALL时才填入caseStatus

页面没有_csrf令牌时不在本地校验，站点会拒绝该请求，表现为后续抓取失败
*/
func BuildSearchForm(doc *goquery.Document, criteria SearchCriteria) (string, url.Values) {
	form := doc.Find("input[name='_csrf']").First().Closest("form")
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}

	data := url.Values{}
	form.Find("input[type='hidden'][name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		data.Set(name, value)
	})

	csrf, _ := doc.Find("input[name='_csrf']").First().Attr("value")
	data.Set(fieldCSRF, csrf)
	data.Set(fieldCaseAddressType, "Application")
	data.Set(fieldValidatedStart, FormatSearchDate(criteria.Start()))
	data.Set(fieldValidatedEnd, FormatSearchDate(criteria.End()))
	data.Set(fieldSearchType, "Application")
	if criteria.Status() != StatusAll {
		data.Set(fieldCaseStatus, criteria.Status().DisplayValue())
	} else {
		data.Del(fieldCaseStatus)
	}

	return formAction(doc, form), data
}

// 表单的提交地址，相对地址按页面地址解析，没有action时提交到页面自身
func formAction(doc *goquery.Document, form *goquery.Selection) string {
	var base *url.URL
	if doc.Url != nil {
		base = doc.Url
	} else {
		base = &url.URL{}
	}

	action, ok := form.Attr("action")
	if !ok || action == "" {
		return base.String()
	}
	ref, err := url.Parse(action)
	if err != nil {
		return base.String()
	}
	return base.ResolveReference(ref).String()
}
