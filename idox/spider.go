package idox

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

// 规则名
const (
	RuleSearchForm     = "search_form"
	RuleResults        = "results"
	RuleDetailsSummary = "details_summary"
	RuleDetailsFurther = "details_further_information"
	RulePolygon        = "arcgis_polygon"
)

var ErrInvalidSite = errors.New("invalid site")

// 一个使用Idox模板的规划门户站点
type Site struct {
	Name           string   // 站点名，同时作为记录的lpa字段
	StartURL       string   // 高级搜索表单页
	AllowedDomains []string // 为空时不限制
	ArcGISURL      string   // 地块边界要素服务，可为空
}

// 扩展功能开关，文档和评论尚未实现
type Toggles struct {
	Documents bool
	Comments  bool
	Polygon   bool
}

type options struct {
	Logger  *zap.Logger
	Limit   int
	Toggles Toggles
}

var defaultOptions = options{
	Logger: zap.NewNop(),
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

// 最多派发多少个申请的详情请求，小于等于0表示不限制
func WithLimit(limit int) Option {
	return func(opts *options) {
		opts.Limit = limit
	}
}

func WithToggles(t Toggles) Option {
	return func(opts *options) {
		opts.Toggles = t
	}
}

// 一个站点的一次爬取：搜索表单、列表翻页、详情合并和地块边界
type Spider struct {
	site     Site
	criteria SearchCriteria
	options

	logger *zap.Logger
	agg    *Aggregator
	ctrl   *Controller
}

/*
输入站点、搜索条件和配置选项，输出一个Spider实例和一个错误

该方法用于创建站点爬虫，站点名和起始地址不能为空；开启尚未实现的文档或评论抓取时只记录警告
*/
func NewSpider(site Site, criteria SearchCriteria, opts ...Option) (*Spider, error) {
	if site.Name == "" || site.StartURL == "" {
		return nil, fmt.Errorf("%w: name and start url are required", ErrInvalidSite)
	}

	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &Spider{
		site:     site,
		criteria: criteria,
		options:  options,
	}
	s.logger = options.Logger.With(zap.String("site", site.Name))
	s.agg = NewAggregator(site.Name, s.logger)
	s.ctrl = NewController(options.Limit, s.agg, s.logger)

	if options.Toggles.Documents {
		s.logger.Warn("document scraping is not implemented, ignoring")
	}
	if options.Toggles.Comments {
		s.logger.Warn("comment scraping is not implemented, ignoring")
	}
	if options.Toggles.Polygon && site.ArcGISURL == "" {
		s.logger.Warn("polygon scraping enabled without arcgis url, ignoring")
	}

	return s, nil
}

func (s *Spider) Site() Site { return s.site }

func (s *Spider) Criteria() SearchCriteria { return s.criteria }

// 已派发详情请求的申请数
func (s *Spider) Scraped() int { return s.ctrl.Scraped() }

// 尚未合并的申请数
func (s *Spider) Pending() int { return s.agg.Pending() }

// 任务允许的域名，开启地块边界抓取时加入ArcGIS服务的域名
func (s *Spider) AllowedDomains() []string {
	if len(s.site.AllowedDomains) == 0 {
		return nil
	}
	domains := append([]string(nil), s.site.AllowedDomains...)
	if s.Toggles.Polygon && s.site.ArcGISURL != "" {
		if u, err := url.Parse(s.site.ArcGISURL); err == nil && u.Hostname() != "" {
			domains = append(domains, u.Hostname())
		}
	}
	return domains
}

/*
输入任务的其他配置选项，输出一个任务实例

该方法用于把站点爬虫包装成引擎可以调度的任务，任务名为站点名，规则树为本爬虫的规则
*/
func (s *Spider) Task(opts ...spider.Option) *spider.Task {
	base := []spider.Option{
		spider.WithName(s.site.Name),
		spider.WithURL(s.site.StartURL),
		spider.WithAllowedDomains(s.AllowedDomains()...),
		spider.WithLogger(s.logger),
	}
	task := spider.NewTask(append(base, opts...)...)
	task.Rule = s.RuleTree()
	return task
}

// 返回站点的采集规则树，所有规则共用同一个错误回调
func (s *Spider) RuleTree() spider.RuleTree {
	return spider.RuleTree{
		Root: s.Root,
		Trunk: map[string]*spider.Rule{
			RuleSearchForm:     {ParseFunc: s.ParseSearchForm, ErrFunc: s.ctrl.HandleError},
			RuleResults:        {ParseFunc: s.ParseResults, ErrFunc: s.ctrl.HandleError},
			RuleDetailsSummary: {ParseFunc: s.ParseSummary, ErrFunc: s.ctrl.HandleError},
			RuleDetailsFurther: {ParseFunc: s.ParseFurther, ErrFunc: s.ctrl.HandleError},
			RulePolygon:        {ParseFunc: s.ParsePolygonResponse, ErrFunc: s.ctrl.HandleError},
		},
	}
}

// 种子请求：高级搜索表单页
func (s *Spider) Root() ([]*spider.Request, error) {
	s.logger.Info("searching for applications",
		zap.String("start", s.criteria.Start().Format(ConfigDateLayout)),
		zap.String("end", s.criteria.End().Format(ConfigDateLayout)),
		zap.String("status", s.criteria.StatusLabel()),
	)
	return []*spider.Request{{
		Url:      s.site.StartURL,
		Method:   "GET",
		RuleName: RuleSearchForm,
	}}, nil
}

// 解析搜索表单页，提交搜索
func (s *Spider) ParseSearchForm(ctx *spider.Context) (spider.ParseResult, error) {
	doc, err := ctx.Doc()
	if err != nil {
		return spider.ParseResult{}, err
	}
	s.logger.Info("submitting search form", zap.String("url", ctx.PageURL().String()))

	action, form := BuildSearchForm(doc, s.criteria)
	return spider.ParseResult{
		Requests: []*spider.Request{{
			Task:     ctx.Req.Task,
			Url:      action,
			Method:   "POST",
			FormData: form,
			Depth:    ctx.Req.Depth + 1,
			RuleName: RuleResults,
		}},
	}, nil
}

/*
输入摘要页上下文，输出解析结果和一个错误

该方法用于解析摘要标签页并交给合并器，表格缺失或日期无法解析时放弃该申请并返回错误
*/
func (s *Spider) ParseSummary(ctx *spider.Context) (spider.ParseResult, error) {
	key := ctx.Req.TmpData.GetString(tmpKeyVal)
	doc, err := ctx.Doc()
	if err != nil {
		s.agg.Abandon(key)
		return spider.ParseResult{}, err
	}
	summary, err := ParseDetailsSummary(doc)
	if err != nil {
		s.agg.Abandon(key)
		return spider.ParseResult{}, fmt.Errorf("keyVal %s: %w", key, err)
	}
	return s.arrive(ctx, s.agg.PutSummary(key, summary), key, ctx.Req.TmpData), nil
}

// 解析详细信息标签页并交给合并器
func (s *Spider) ParseFurther(ctx *spider.Context) (spider.ParseResult, error) {
	key := ctx.Req.TmpData.GetString(tmpKeyVal)
	doc, err := ctx.Doc()
	if err != nil {
		s.agg.Abandon(key)
		return spider.ParseResult{}, err
	}
	further, err := ParseDetailsFurtherInformation(doc)
	if err != nil {
		s.agg.Abandon(key)
		return spider.ParseResult{}, fmt.Errorf("keyVal %s: %w", key, err)
	}
	return s.arrive(ctx, s.agg.PutFurther(key, further), key, ctx.Req.TmpData), nil
}

/*
输入当前详情页上下文、合并器的到达结果、keyVal和请求链的临时数据，输出解析结果

合并完成时输出记录，并在开启地块边界抓取时派发ArcGIS请求；尚未合并时补发合并器要求的另一个标签页
*/
func (s *Spider) arrive(ctx *spider.Context, arr Arrival, key string, tmp *spider.Temp) spider.ParseResult {
	var res spider.ParseResult
	pageURL := ctx.PageURL().String()

	switch {
	case arr.Dropped:
		return res
	case arr.Record != nil:
		s.logger.Info("application merged",
			zap.String("keyVal", key),
			zap.String("reference", arr.Record.Reference),
		)
		res.Items = append(res.Items, ctx.Output(arr.Record))
		if s.Toggles.Polygon && s.site.ArcGISURL != "" {
			ptmp := tmp.Clone()
			_ = ptmp.Set(tmpReference, arr.Record.Reference)
			res.Requests = append(res.Requests, detailRequest(ctx.Req, PolygonQueryURL(s.site.ArcGISURL, key), RulePolygon, ptmp))
		}
		return res
	}

	if arr.IssueSummary {
		res.Requests = append(res.Requests, detailRequest(ctx.Req, TabURL(pageURL, TabSummary), RuleDetailsSummary, tmp))
	}
	if arr.IssueFurther {
		res.Requests = append(res.Requests, detailRequest(ctx.Req, TabURL(pageURL, TabDetails), RuleDetailsFurther, tmp))
	}
	return res
}

// 解析ArcGIS响应，校验失败时记录一条错误并丢弃
func (s *Spider) ParsePolygonResponse(ctx *spider.Context) (spider.ParseResult, error) {
	key := ctx.Req.TmpData.GetString(tmpKeyVal)
	polygon, err := ParsePolygon(ctx.Body, key, ctx.Req.Url, s.site.Name, ctx.Req.TmpData.GetString(tmpReference))
	if err != nil {
		s.logger.Error("drop polygon",
			zap.Error(err),
			zap.String("url", ctx.Req.Url),
			zap.String("keyVal", key),
		)
		return spider.ParseResult{}, nil
	}
	return spider.ParseResult{Items: []interface{}{ctx.Output(polygon)}}, nil
}
