package idox

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dszqbsm/planning/spider"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testPortal = "http://portal.test"

const searchFormPage = `<html><body>
<form id="advancedSearchForm" method="post" action="/online-applications/advancedSearchResults.do?action=firstPage">
  <input type="hidden" name="_csrf" value="tok-123"/>
  <input type="hidden" name="searchCriteria.resultsPerPage" value="10"/>
  <input type="text" name="searchCriteria.reference" value=""/>
  <select name="caseStatus"><option value="">All</option></select>
</form>
</body></html>`

const noResultsPage = `<html><body>
<div class="messagebox"><h2>No results found.</h2></div>
</body></html>`

const tooManyPage = `<html><body>
<div class="messagebox errors"><h2>Too many results found. Please enter some more parameters.</h2></div>
</body></html>`

func detailHref(key string) string {
	return "/online-applications/applicationDetails.do?activeTab=summary&amp;keyVal=" + key
}

// 生成列表页，next为空时没有下一页
func resultsPage(next string, keys ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul id="searchresults">`)
	for _, k := range keys {
		fmt.Fprintf(&b, `<li class="searchresult"><a href="%s">Application %s</a><p class="address">1 High Street</p></li>`, detailHref(k), k)
	}
	b.WriteString(`</ul>`)
	if next != "" {
		fmt.Fprintf(&b, `<p class="pager bottom"><a class="next" href="%s">Next</a></p>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func summaryTable(ref string) string {
	return `<table id="simpleDetailsTable">
<tr><th scope="row">Reference</th><td>` + ref + `</td></tr>
<tr><th scope="row">Alternative Reference</th><td>PP-0001</td></tr>
<tr><th scope="row">Application Received</th><td>Mon 01 Jan 2024</td></tr>
<tr><th scope="row">Application Validated</th><td>  Tue 02 Jan 2024 </td></tr>
<tr><th scope="row">Address</th><td>1 High Street, Westminster</td></tr>
<tr><th scope="row">Proposal</th><td>Erection of a garden shed</td></tr>
<tr><th scope="row">Appeal Status</th><td>Unknown</td></tr>
<tr><th scope="row">Appeal Decision</th><td>  </td></tr>
</table>`
}

func summaryPage(ref string) string {
	return `<html><body><div id="pa">` + summaryTable(ref) + `</div></body></html>`
}

// 搜索只有一个结果时站点直接返回的详情页
func singleApplicationPage(ref string) string {
	return `<html><body><div id="applicationTools"><a href="#">Track</a></div>` + summaryTable(ref) + `</body></html>`
}

const furtherPage = `<html><body>
<table id="applicationDetails">
<tr><th scope="row">Application Type</th><td>Full Planning Permission</td></tr>
<tr><th scope="row">Expected Decision Level</th><td>Delegated</td></tr>
<tr><th scope="row">Case Officer</th><td>Jane Smith</td></tr>
<tr><th scope="row">Ward</th><td>St James's</td></tr>
<tr><th scope="row">District Reference</th><td></td></tr>
<tr><th scope="row">Applicant Name</th><td>Mr A Applicant</td></tr>
<tr><th scope="row">Applicant Address</th><td>2 Low Road</td></tr>
<tr><th scope="row">Environmental Assessment Requested</th><td>No</td></tr>
</table>
</body></html>`

func testSite() Site {
	return Site{
		Name:      "westminster",
		StartURL:  testPortal + "/online-applications/search.do?action=advanced",
		ArcGISURL: "http://gis.test/arcgis/rest/services/Planning/MapServer/0/query",
	}
}

func testCriteria(t *testing.T) SearchCriteria {
	t.Helper()
	c, err := NewSearchCriteria(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		StatusAll,
	)
	require.NoError(t, err)
	return c
}

// 返回写入observer的日志器，用于断言错误日志的条数
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestSpider(t *testing.T, opts ...Option) (*Spider, *observer.ObservedLogs) {
	t.Helper()
	logger, logs := observedLogger()
	s, err := NewSpider(testSite(), testCriteria(t), append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return s, logs
}

// 构造解析函数的上下文
func pageContext(t *testing.T, task *spider.Task, rule, rawURL, body string, tmp *spider.Temp) *spider.Context {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &spider.Context{
		Body: []byte(body),
		Req: &spider.Request{
			Task:     task,
			Url:      rawURL,
			RuleName: rule,
			TmpData:  tmp,
		},
		URL: u,
	}
}

func errorCount(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func requestsFor(reqs []*spider.Request, rule string) []*spider.Request {
	var out []*spider.Request
	for _, r := range reqs {
		if r.RuleName == rule {
			out = append(out, r)
		}
	}
	return out
}
