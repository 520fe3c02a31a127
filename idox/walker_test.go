package idox

import (
	"testing"

	"github.com/dszqbsm/planning/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingURL = testPortal + "/online-applications/advancedSearchResults.do?action=firstPage"

func TestWalkNoResults(t *testing.T) {
	s, logs := newTestSpider(t)
	task := s.Task()

	for _, body := range []string{noResultsPage, `<html><body><p>nothing here</p></body></html>`} {
		w, err := s.Walk(pageContext(t, task, RuleResults, listingURL, body, nil))
		require.NoError(t, err)
		assert.Equal(t, WalkNoResults, w.State)
		assert.Empty(t, w.Requests)
	}
	assert.Equal(t, 0, errorCount(logs))
	assert.Equal(t, 0, s.Scraped())
}

func TestWalkTooManyResults(t *testing.T) {
	s, logs := newTestSpider(t)

	w, err := s.Walk(pageContext(t, s.Task(), RuleResults, listingURL, tooManyPage, nil))

	require.NoError(t, err)
	assert.Equal(t, WalkTooMany, w.State)
	assert.Empty(t, w.Requests)
	assert.Equal(t, 1, errorCount(logs))
}

func TestWalkLimitStopsMidPage(t *testing.T) {
	s, _ := newTestSpider(t, WithLimit(2))
	body := resultsPage("/online-applications/pagedSearchResults.do?action=page&searchCriteria.page=2", "K1", "K2", "K3")

	w, err := s.Walk(pageContext(t, s.Task(), RuleResults, listingURL, body, nil))

	require.NoError(t, err)
	assert.Equal(t, WalkLimitReached, w.State)
	assert.Equal(t, 2, w.Rows)
	assert.Len(t, w.Requests, 4)
	assert.Empty(t, requestsFor(w.Requests, RuleResults), "no next page after the limit")
	for _, r := range w.Requests {
		assert.NotEqual(t, "K3", r.TmpData.GetString(tmpKeyVal))
	}
	assert.Equal(t, 2, s.Scraped())
}

func TestWalkFollowsNextPage(t *testing.T) {
	s, _ := newTestSpider(t)
	body := resultsPage("/online-applications/pagedSearchResults.do?action=page&amp;searchCriteria.page=2", "K1", "K2", "K3")
	ctx := pageContext(t, s.Task(), RuleResults, listingURL, body, nil)
	ctx.Req.Depth = 1

	w, err := s.Walk(ctx)

	require.NoError(t, err)
	assert.Equal(t, WalkNextPage, w.State)
	assert.Equal(t, 3, w.Rows)
	require.Len(t, w.Requests, 7)

	// 详情请求按文档顺序排列，下一页请求在最后
	var keys []string
	for _, r := range requestsFor(w.Requests, RuleDetailsSummary) {
		keys = append(keys, r.TmpData.GetString(tmpKeyVal))
	}
	assert.Equal(t, []string{"K1", "K2", "K3"}, keys)

	next := w.Requests[len(w.Requests)-1]
	assert.Equal(t, RuleResults, next.RuleName)
	assert.Equal(t, testPortal+"/online-applications/pagedSearchResults.do?action=page&searchCriteria.page=2", next.Url)
	assert.Equal(t, 2, next.Depth)
	assert.Zero(t, next.Priority)
}

func TestWalkExhausted(t *testing.T) {
	s, _ := newTestSpider(t)

	w, err := s.Walk(pageContext(t, s.Task(), RuleResults, listingURL, resultsPage("", "K1"), nil))

	require.NoError(t, err)
	assert.Equal(t, WalkExhausted, w.State)
	assert.Len(t, w.Requests, 2)
}

func TestWalkSingleApplication(t *testing.T) {
	s, _ := newTestSpider(t)
	page := testPortal + "/online-applications/applicationDetails.do?activeTab=summary&keyVal=ONLY1"
	task := s.Task()

	w, err := s.Walk(pageContext(t, task, RuleResults, page, singleApplicationPage("24/0001/FUL"), nil))

	require.NoError(t, err)
	assert.Equal(t, WalkSingleApplication, w.State)
	require.Len(t, w.Requests, 1, "only the further information tab is fetched")
	further := w.Requests[0]
	assert.Equal(t, RuleDetailsFurther, further.RuleName)
	assert.Equal(t, testPortal+"/online-applications/applicationDetails.do?activeTab=details&keyVal=ONLY1", further.Url)
	assert.Equal(t, 1, s.Scraped())

	// 详细信息页到达后合并出唯一一条记录
	res, err := s.ParseFurther(pageContext(t, task, RuleDetailsFurther, further.Url, furtherPage, further.TmpData))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	rec := res.Items[0].(*spider.DataCell).Record().(*PlanningApplicationRecord)
	assert.Equal(t, "24/0001/FUL", rec.Reference)
	assert.Equal(t, "Jane Smith", rec.CaseOfficer)
}

func TestWalkSingleApplicationWithoutKey(t *testing.T) {
	s, logs := newTestSpider(t)
	page := testPortal + "/online-applications/applicationDetails.do?activeTab=summary"

	w, err := s.Walk(pageContext(t, s.Task(), RuleResults, page, singleApplicationPage("R"), nil))

	require.NoError(t, err)
	assert.Equal(t, WalkSingleApplication, w.State)
	assert.Empty(t, w.Requests)
	assert.Equal(t, 1, errorCount(logs))
}

func TestWalkStateString(t *testing.T) {
	assert.Equal(t, "too_many_results", WalkTooMany.String())
	assert.Equal(t, "unknown", WalkState(99).String())
}
