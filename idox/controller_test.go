package idox

import (
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dszqbsm/planning/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rowsOf(t *testing.T, ctx *spider.Context) *goquery.Selection {
	t.Helper()
	doc, err := ctx.Doc()
	require.NoError(t, err)
	return doc.Find("#searchresults .searchresult")
}

func TestParseRow(t *testing.T) {
	task := spider.NewTask(spider.WithName("westminster"))
	ctx := pageContext(t, task, RuleResults, testPortal+"/online-applications/advancedSearchResults.do", resultsPage("", "QX1"), nil)

	ref, err := ParseRow(ctx, rowsOf(t, ctx).First())
	require.NoError(t, err)
	assert.Equal(t, "QX1", ref.Key)
	assert.Equal(t, testPortal+"/online-applications/applicationDetails.do?activeTab=summary&keyVal=QX1", ref.SummaryURL)
	assert.Equal(t, testPortal+"/online-applications/applicationDetails.do?activeTab=details&keyVal=QX1", ref.FurtherURL)
}

func TestControllerDispatch(t *testing.T) {
	logger, logs := observedLogger()
	agg := NewAggregator("westminster", logger)
	c := NewController(0, agg, logger)
	task := spider.NewTask(spider.WithName("westminster"))
	listing := testPortal + "/online-applications/advancedSearchResults.do"
	body := `<ul id="searchresults">
<li class="searchresult"><a href="/online-applications/applicationDetails.do?activeTab=summary&amp;keyVal=K1">one</a></li>
<li class="searchresult"><a href="/online-applications/applicationDetails.do?activeTab=summary">no key</a></li>
<li class="searchresult"><p>no link</p></li>
<li class="searchresult"><a href="/online-applications/applicationDetails.do?activeTab=summary&amp;keyVal=K1">dup</a></li>
</ul>`
	ctx := pageContext(t, task, RuleResults, listing, body, nil)
	ctx.Req.Depth = 2

	var reqs []*spider.Request
	rowsOf(t, ctx).Each(func(_ int, row *goquery.Selection) {
		reqs = append(reqs, c.Dispatch(ctx, row)...)
	})

	require.Len(t, reqs, 2)
	assert.Equal(t, 1, c.Scraped())
	assert.Equal(t, 2, errorCount(logs), "both rows without a key are logged")
	assert.Equal(t, 1, agg.Pending())

	for _, r := range reqs {
		assert.Same(t, task, r.Task)
		assert.Equal(t, 3, r.Depth)
		assert.Equal(t, detailPriority, r.Priority)
		assert.Equal(t, "K1", r.TmpData.GetString(tmpKeyVal))
		assert.Equal(t, listing, r.TmpData.GetString(tmpListingURL))
		assert.Equal(t, 1, r.TmpData.GetInt(tmpScraped))
	}
	assert.Equal(t, RuleDetailsSummary, reqs[0].RuleName)
	assert.Equal(t, RuleDetailsFurther, reqs[1].RuleName)
	assert.Same(t, reqs[0].TmpData, reqs[1].TmpData)
}

func TestControllerLimit(t *testing.T) {
	c := NewController(2, NewAggregator("westminster", nil), zap.NewNop())

	_, ok := c.claim("A", true, true)
	assert.True(t, ok)
	assert.False(t, c.Reached())
	n, ok := c.claim("B", true, true)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.True(t, c.Reached())

	_, ok = c.claim("C", true, true)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Scraped())
}

func TestControllerUnlimited(t *testing.T) {
	c := NewController(-1, NewAggregator("westminster", nil), nil)
	for _, k := range []string{"A", "B", "C", "D"} {
		_, ok := c.claim(k, true, true)
		assert.True(t, ok)
	}
	assert.False(t, c.Reached())
	assert.Equal(t, 4, c.Scraped())
}

func TestControllerHandleError(t *testing.T) {
	logger, logs := observedLogger()
	agg := NewAggregator("westminster", logger)
	c := NewController(0, agg, logger)
	_, ok := c.claim("K1", true, true)
	require.True(t, ok)

	tmp := &spider.Temp{}
	require.NoError(t, tmp.Set(tmpKeyVal, "K1"))
	req := &spider.Request{Url: testPortal + "/details?keyVal=K1", RuleName: RuleDetailsFurther, TmpData: tmp}

	c.HandleError(req, errors.New("error status code:500"))

	assert.Equal(t, 0, agg.Pending())
	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "K1", fields["keyVal"])
	assert.Equal(t, req.Url, fields["url"])

	// 列表页失败时没有需要放弃的槽位
	c.HandleError(&spider.Request{Url: testPortal + "/results", RuleName: RuleResults}, errors.New("timeout"))
	assert.Equal(t, 2, errorCount(logs))
}
