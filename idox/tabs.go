package idox

import (
	"net/url"
)

// 详情页的标签页，通过activeTab参数切换
type Tab string

const (
	TabSummary           Tab = "summary"
	TabDetails           Tab = "details"
	TabDocuments         Tab = "documents"
	TabNeighbourComments Tab = "neighbourComments"
	TabConsulteeComments Tab = "consulteeComments"
	TabRelatedCases      Tab = "relatedcases"
	TabMap               Tab = "map"
)

const (
	paramActiveTab = "activeTab"
	paramKeyVal    = "keyVal"
)

/*
输入一个详情页地址和目标标签页，输出目标标签页的地址

该方法用于在同一个申请的不同标签页之间切换，只替换activeTab参数，其他参数保持不变；地址无法解析时原样返回
*/
func TabURL(detailURL string, tab Tab) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return detailURL
	}
	q := u.Query()
	q.Set(paramActiveTab, string(tab))
	u.RawQuery = q.Encode()
	return u.String()
}

// 从详情页地址的查询参数中取出申请的唯一键keyVal，取不到时返回空串
func KeyVal(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(paramKeyVal)
}
