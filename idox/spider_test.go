package idox

import (
	"errors"
	"net/url"
	"testing"

	"github.com/dszqbsm/planning/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewSpiderValidation(t *testing.T) {
	_, err := NewSpider(Site{Name: "x"}, testCriteria(t))
	assert.ErrorIs(t, err, ErrInvalidSite)

	_, err = NewSpider(Site{StartURL: testPortal}, testCriteria(t))
	assert.ErrorIs(t, err, ErrInvalidSite)
}

func TestNewSpiderToggleWarnings(t *testing.T) {
	_, logs := newTestSpider(t, WithToggles(Toggles{Documents: true, Comments: true}))
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestSpiderAllowedDomains(t *testing.T) {
	site := testSite()
	site.AllowedDomains = []string{"portal.test"}

	s, err := NewSpider(site, testCriteria(t), WithToggles(Toggles{Polygon: true}))
	require.NoError(t, err)
	assert.Equal(t, []string{"portal.test", "gis.test"}, s.AllowedDomains())

	s, err = NewSpider(site, testCriteria(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"portal.test"}, s.AllowedDomains())
}

func TestSpiderTask(t *testing.T) {
	s, _ := newTestSpider(t)
	task := s.Task(spider.WithMaxDepth(5))

	assert.Equal(t, "westminster", task.Name)
	assert.Equal(t, 5, task.MaxDepth)
	for _, name := range []string{RuleSearchForm, RuleResults, RuleDetailsSummary, RuleDetailsFurther, RulePolygon} {
		rule, ok := task.Rule.Trunk[name]
		require.True(t, ok, name)
		assert.NotNil(t, rule.ParseFunc)
		assert.NotNil(t, rule.ErrFunc)
	}

	root, err := task.Rule.Root()
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, testSite().StartURL, root[0].Url)
	assert.Equal(t, RuleSearchForm, root[0].RuleName)
}

func TestParseSearchForm(t *testing.T) {
	s, _ := newTestSpider(t)
	ctx := pageContext(t, s.Task(), RuleSearchForm, testSite().StartURL, searchFormPage, nil)

	res, err := s.ParseSearchForm(ctx)

	require.NoError(t, err)
	require.Len(t, res.Requests, 1)
	req := res.Requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, RuleResults, req.RuleName)
	assert.Equal(t, testPortal+"/online-applications/advancedSearchResults.do?action=firstPage", req.Url)
	assert.Equal(t, "tok-123", req.FormData.Get("_csrf"))
	assert.Equal(t, "01/01/2024", req.FormData.Get("date(applicationValidatedStart)"))
	assert.Equal(t, "31/03/2024", req.FormData.Get("date(applicationValidatedEnd)"))
}

// 两个标签页以任意顺序到达，都只产生一条字段相同的记录
func TestDetailsMergeEitherOrder(t *testing.T) {
	records := make([]*PlanningApplicationRecord, 0, 2)

	for _, summaryFirst := range []bool{true, false} {
		s, _ := newTestSpider(t)
		task := s.Task()
		listing := pageContext(t, task, RuleResults, listingURL, resultsPage("", "K1"), nil)
		w, err := s.Walk(listing)
		require.NoError(t, err)
		require.Len(t, w.Requests, 2)

		summaryReq := requestsFor(w.Requests, RuleDetailsSummary)[0]
		furtherReq := requestsFor(w.Requests, RuleDetailsFurther)[0]
		summary := func() (spider.ParseResult, error) {
			return s.ParseSummary(pageContext(t, task, RuleDetailsSummary, summaryReq.Url, summaryPage("24/1234/FUL"), summaryReq.TmpData))
		}
		further := func() (spider.ParseResult, error) {
			return s.ParseFurther(pageContext(t, task, RuleDetailsFurther, furtherReq.Url, furtherPage, furtherReq.TmpData))
		}
		first, second := summary, further
		if !summaryFirst {
			first, second = further, summary
		}

		res, err := first()
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Empty(t, res.Requests, "counterpart was already issued")

		res, err = second()
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		records = append(records, res.Items[0].(*spider.DataCell).Record().(*PlanningApplicationRecord))
		assert.Equal(t, 0, s.Pending())
	}

	assert.Equal(t, records[0], records[1])
	assert.Equal(t, "24/1234/FUL", records[0].Reference)
	assert.Equal(t, "westminster", records[0].LPA)
}

func TestParseSummaryFailureAbandons(t *testing.T) {
	s, _ := newTestSpider(t)
	task := s.Task()
	w, err := s.Walk(pageContext(t, task, RuleResults, listingURL, resultsPage("", "K1"), nil))
	require.NoError(t, err)
	summaryReq := requestsFor(w.Requests, RuleDetailsSummary)[0]
	furtherReq := requestsFor(w.Requests, RuleDetailsFurther)[0]

	_, err = s.ParseSummary(pageContext(t, task, RuleDetailsSummary, summaryReq.Url, "<html></html>", summaryReq.TmpData))
	assert.ErrorIs(t, err, ErrMissingTable)
	assert.Equal(t, 0, s.Pending())

	res, err := s.ParseFurther(pageContext(t, task, RuleDetailsFurther, furtherReq.Url, furtherPage, furtherReq.TmpData))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestSummaryWithoutReferenceEmitsNothing(t *testing.T) {
	s, _ := newTestSpider(t)
	task := s.Task()
	w, err := s.Walk(pageContext(t, task, RuleResults, listingURL, resultsPage("", "K1"), nil))
	require.NoError(t, err)
	summaryReq := requestsFor(w.Requests, RuleDetailsSummary)[0]
	furtherReq := requestsFor(w.Requests, RuleDetailsFurther)[0]

	res, err := s.ParseFurther(pageContext(t, task, RuleDetailsFurther, furtherReq.Url, furtherPage, furtherReq.TmpData))
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	noRef := `<table id="simpleDetailsTable"><tr><th>Address</th><td>1 High Street</td></tr></table>`
	res, err = s.ParseSummary(pageContext(t, task, RuleDetailsSummary, summaryReq.Url, noRef, summaryReq.TmpData))
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, s.Pending())
}

func TestFetchFailureIsolated(t *testing.T) {
	s, logs := newTestSpider(t)
	task := s.Task()
	w, err := s.Walk(pageContext(t, task, RuleResults, listingURL, resultsPage("", "K1", "K2"), nil))
	require.NoError(t, err)

	var k1Further, k2Summary, k2Further *spider.Request
	for _, r := range w.Requests {
		switch {
		case r.TmpData.GetString(tmpKeyVal) == "K1" && r.RuleName == RuleDetailsFurther:
			k1Further = r
		case r.TmpData.GetString(tmpKeyVal) == "K2" && r.RuleName == RuleDetailsSummary:
			k2Summary = r
		case r.TmpData.GetString(tmpKeyVal) == "K2" && r.RuleName == RuleDetailsFurther:
			k2Further = r
		}
	}
	require.NotNil(t, k1Further)

	task.Rule.Trunk[RuleDetailsFurther].ErrFunc(k1Further, errors.New("error status code:503"))
	assert.Equal(t, 1, errorCount(logs))

	_, err = s.ParseSummary(pageContext(t, task, RuleDetailsSummary, k2Summary.Url, summaryPage("R2"), k2Summary.TmpData))
	require.NoError(t, err)
	res, err := s.ParseFurther(pageContext(t, task, RuleDetailsFurther, k2Further.Url, furtherPage, k2Further.TmpData))
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestMergeSpawnsPolygonRequest(t *testing.T) {
	s, _ := newTestSpider(t, WithToggles(Toggles{Polygon: true}))
	task := s.Task()
	w, err := s.Walk(pageContext(t, task, RuleResults, listingURL, resultsPage("", "QX1"), nil))
	require.NoError(t, err)
	summaryReq := requestsFor(w.Requests, RuleDetailsSummary)[0]
	furtherReq := requestsFor(w.Requests, RuleDetailsFurther)[0]

	_, err = s.ParseSummary(pageContext(t, task, RuleDetailsSummary, summaryReq.Url, summaryPage("24/1234/FUL"), summaryReq.TmpData))
	require.NoError(t, err)
	res, err := s.ParseFurther(pageContext(t, task, RuleDetailsFurther, furtherReq.Url, furtherPage, furtherReq.TmpData))
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	require.Len(t, res.Requests, 1)
	poly := res.Requests[0]
	assert.Equal(t, RulePolygon, poly.RuleName)
	assert.Equal(t, PolygonQueryURL(testSite().ArcGISURL, "QX1"), poly.Url)
	assert.Equal(t, "24/1234/FUL", poly.TmpData.GetString(tmpReference))
	assert.Empty(t, furtherReq.TmpData.GetString(tmpReference), "shared temp data is not modified")
}

func TestParsePolygonResponse(t *testing.T) {
	s, logs := newTestSpider(t)
	task := s.Task()
	tmp := &spider.Temp{}
	require.NoError(t, tmp.Set(tmpKeyVal, "QX1"))
	require.NoError(t, tmp.Set(tmpReference, "24/1234/FUL"))
	u := PolygonQueryURL(testSite().ArcGISURL, "QX1")

	mismatch := `{"features":[{"geometry":{"type":"Point","coordinates":[0,51]},"properties":{"KEYVAL":"OTHER"}}]}`
	res, err := s.ParsePolygonResponse(pageContext(t, task, RulePolygon, u, mismatch, tmp))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, errorCount(logs))

	match := `{"features":[{"geometry":{"type":"Point","coordinates":[0,51]},"properties":{"KEYVAL":"QX1"}}]}`
	res, err = s.ParsePolygonResponse(pageContext(t, task, RulePolygon, u, match, tmp))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	cell := res.Items[0].(*spider.DataCell)
	assert.Equal(t, "planning_application_polygons", cell.GetTableName())
	p := cell.Record().(*PlanningApplicationPolygon)
	assert.Equal(t, "24/1234/FUL", p.Reference)
	_, err = url.Parse(p.MetaSourceURL)
	assert.NoError(t, err)
}
