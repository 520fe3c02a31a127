package idox

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

// 列表页处理结束时所处的状态
type WalkState int

const (
	WalkNoResults         WalkState = iota // 没有结果
	WalkTooMany                            // 结果过多，需要缩小搜索范围
	WalkSingleApplication                  // 搜索直接跳转到唯一申请的详情页
	WalkNextPage                           // 本页处理完毕，继续下一页
	WalkExhausted                          // 没有下一页
	WalkLimitReached                       // 达到上限，停止派发
)

var walkStateNames = [...]string{
	WalkNoResults:         "no_results",
	WalkTooMany:           "too_many_results",
	WalkSingleApplication: "single_application",
	WalkNextPage:          "next_page",
	WalkExhausted:         "exhausted",
	WalkLimitReached:      "limit_reached",
}

func (s WalkState) String() string {
	if s < 0 || int(s) >= len(walkStateNames) {
		return "unknown"
	}
	return walkStateNames[s]
}

const (
	messageBoxSelector       = ".messagebox"
	applicationToolsSelector = "#applicationTools"
	searchResultsSelector    = "#searchresults"
	resultRowSelector        = ".searchresult"
	nextPageSelector         = ".next[href]"

	noResultsMessage = "No results found"
	tooManyMessage   = "Too many results found"
)

// 一个列表页的处理结果
type Walk struct {
	State    WalkState
	Rows     int               // 本页派发了详情请求的行数
	Requests []*spider.Request // 详情请求，以及最后可能的下一页请求
}

/*
输入列表页上下文，输出处理结果和一个错误

该方法用于实现列表页的状态机：先检查提示框（没有结果/结果过多直接结束），再检查是否为单个申请的详情页，
否则按文档顺序逐行派发详情请求，达到上限立即停止，不再处理后续行和下一页；全部行派发完毕后才生成下一页请求
*/
func (s *Spider) Walk(ctx *spider.Context) (Walk, error) {
	doc, err := ctx.Doc()
	if err != nil {
		return Walk{}, err
	}
	pageURL := ctx.PageURL().String()

	if msg := doc.Find(messageBoxSelector).First(); msg.Length() > 0 {
		text := msg.Text()
		if strings.Contains(text, noResultsMessage) {
			s.logger.Info("no applications found", zap.String("url", pageURL))
			return Walk{State: WalkNoResults}, nil
		}
		if strings.Contains(text, tooManyMessage) {
			s.logger.Error("too many results found, make the search more specific", zap.String("url", pageURL))
			return Walk{State: WalkTooMany}, nil
		}
	}

	if doc.Find(applicationToolsSelector).Length() > 0 {
		s.logger.Info("only one application found", zap.String("url", pageURL))
		reqs, err := s.singleApplication(ctx, doc)
		if err != nil {
			return Walk{}, err
		}
		return Walk{State: WalkSingleApplication, Requests: reqs}, nil
	}

	results := doc.Find(searchResultsSelector).First()
	if results.Length() == 0 {
		s.logger.Info("no applications found", zap.String("url", pageURL))
		return Walk{State: WalkNoResults}, nil
	}

	rows := results.Find(resultRowSelector)
	s.logger.Info("found applications", zap.Int("count", rows.Length()), zap.String("url", pageURL))

	w := Walk{}
	limited := false
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if s.ctrl.Reached() {
			limited = true
			return false
		}
		reqs := s.ctrl.Dispatch(ctx, row)
		if len(reqs) > 0 {
			w.Rows++
			w.Requests = append(w.Requests, reqs...)
		}
		return true
	})
	if limited || s.ctrl.Reached() {
		s.logger.Info("reached the limit of applications", zap.Int("limit", s.ctrl.Limit()))
		w.State = WalkLimitReached
		return w, nil
	}

	href, _ := doc.Find(nextPageSelector).First().Attr("href")
	if href == "" {
		w.State = WalkExhausted
		return w, nil
	}
	next, err := ctx.AbsURL(href)
	if err != nil {
		return w, err
	}
	s.logger.Info("found next page", zap.String("url", next))
	w.State = WalkNextPage
	w.Requests = append(w.Requests, &spider.Request{
		Task:     ctx.Req.Task,
		Url:      next,
		Method:   "GET",
		Depth:    ctx.Req.Depth + 1,
		RuleName: RuleResults,
	})
	return w, nil
}

/*
输入详情页上下文和已解析的文档，输出需要补发的请求和一个错误

搜索只有一个结果时站点直接返回该申请的摘要页，此时从页面地址取keyVal占用槽位，把当前页面当作摘要页写入合并器，由合并器要求补发详细信息页
*/
func (s *Spider) singleApplication(ctx *spider.Context, doc *goquery.Document) ([]*spider.Request, error) {
	pageURL := ctx.PageURL().String()
	key := KeyVal(pageURL)
	if key == "" {
		s.logger.Error("skip single application", zap.Error(ErrMissingKey), zap.String("url", pageURL))
		return nil, nil
	}

	scraped, ok := s.ctrl.claim(key, true, false)
	if !ok {
		return nil, nil
	}
	tmp := s.ctrl.temp(key, pageURL, scraped)

	summary, err := ParseDetailsSummary(doc)
	if err != nil {
		s.agg.Abandon(key)
		return nil, err
	}
	res := s.arrive(ctx, s.agg.PutSummary(key, summary), key, tmp)
	return res.Requests, nil
}

// 列表页的解析函数
func (s *Spider) ParseResults(ctx *spider.Context) (spider.ParseResult, error) {
	w, err := s.Walk(ctx)
	if err != nil {
		return spider.ParseResult{}, err
	}
	s.logger.Debug("listing page walked",
		zap.String("url", ctx.PageURL().String()),
		zap.Stringer("state", w.State),
		zap.Int("rows", w.Rows),
	)
	return spider.ParseResult{Requests: w.Requests}, nil
}
