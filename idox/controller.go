package idox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dszqbsm/planning/spider"
	"go.uber.org/zap"
)

var ErrMissingKey = errors.New("failed to parse keyVal")

// 请求链上共享的临时数据
const (
	tmpKeyVal     = "keyVal"
	tmpListingURL = "listingURL"
	tmpLimit      = "limit"
	tmpScraped    = "scraped"
	tmpReference  = "reference"
)

// 详情请求优先于翻页请求调度
const detailPriority = 1

// 列表页中一行对应的申请
type ResultRowRef struct {
	Key        string
	SummaryURL string
	FurtherURL string
}

/*
输入列表页上下文和一行结果，输出该行对应的申请和一个错误

该方法用于从行内第一个链接得到摘要页地址，再从中取出keyVal并推导出详细信息页地址，keyVal为空时返回ErrMissingKey
*/
func ParseRow(ctx *spider.Context, row *goquery.Selection) (ResultRowRef, error) {
	href, _ := row.Find("a[href]").First().Attr("href")
	if href == "" {
		return ResultRowRef{}, fmt.Errorf("%w: row has no link", ErrMissingKey)
	}
	summaryURL, err := ctx.AbsURL(href)
	if err != nil {
		return ResultRowRef{}, fmt.Errorf("%w: %v", ErrMissingKey, err)
	}
	key := KeyVal(summaryURL)
	if key == "" {
		return ResultRowRef{}, fmt.Errorf("%w from %s", ErrMissingKey, summaryURL)
	}
	return ResultRowRef{
		Key:        key,
		SummaryURL: summaryURL,
		FurtherURL: TabURL(summaryURL, TabDetails),
	}, nil
}

// 爬取控制器：持有全局已派发计数和上限，把列表行转换为详情请求
type Controller struct {
	limit  int // 小于等于0表示不限制
	agg    *Aggregator
	logger *zap.Logger

	mu      sync.Mutex
	scraped int
}

func NewController(limit int, agg *Aggregator, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{limit: limit, agg: agg, logger: logger}
}

func (c *Controller) Limit() int { return c.limit }

// 已派发详情请求的申请数
func (c *Controller) Scraped() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scraped
}

// 是否已经达到上限
func (c *Controller) Reached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reached()
}

func (c *Controller) reached() bool {
	return c.limit > 0 && c.scraped >= c.limit
}

/*
输入申请的keyVal和两个标签页是否会由调用方发出请求，输出计数快照和是否占用成功

该方法用于在派发详情请求之前检查上限、打开合并槽位并增加计数，三步在同一把锁内完成；已达上限或该申请已在处理中时返回false
*/
func (c *Controller) claim(key string, summaryIssued, furtherIssued bool) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reached() {
		return c.scraped, false
	}
	if !c.agg.Open(key, summaryIssued, furtherIssued) {
		c.logger.Debug("application already dispatched", zap.String("keyVal", key))
		return c.scraped, false
	}
	c.scraped++
	return c.scraped, true
}

/*
输入列表页上下文和一行结果，输出该行派生的详情请求

该方法用于处理一行列表结果：keyVal取不到时记录错误并跳过该行；否则计数加一，返回摘要页和详细信息页两个请求，二者共享同一份临时数据（keyVal、来源列表页、上限和计数快照）
*/
func (c *Controller) Dispatch(ctx *spider.Context, row *goquery.Selection) []*spider.Request {
	ref, err := ParseRow(ctx, row)
	if err != nil {
		c.logger.Error("skip result row",
			zap.Error(err),
			zap.String("url", ctx.PageURL().String()),
		)
		return nil
	}

	scraped, ok := c.claim(ref.Key, true, true)
	if !ok {
		return nil
	}

	tmp := c.temp(ref.Key, ctx.PageURL().String(), scraped)
	return []*spider.Request{
		detailRequest(ctx.Req, ref.SummaryURL, RuleDetailsSummary, tmp),
		detailRequest(ctx.Req, ref.FurtherURL, RuleDetailsFurther, tmp),
	}
}

func (c *Controller) temp(key, listingURL string, scraped int) *spider.Temp {
	tmp := &spider.Temp{}
	_ = tmp.Set(tmpKeyVal, key)
	_ = tmp.Set(tmpListingURL, listingURL)
	_ = tmp.Set(tmpLimit, c.limit)
	_ = tmp.Set(tmpScraped, scraped)
	return tmp
}

func detailRequest(parent *spider.Request, url, rule string, tmp *spider.Temp) *spider.Request {
	return &spider.Request{
		Task:     parent.Task,
		Url:      url,
		Method:   "GET",
		Depth:    parent.Depth + 1,
		Priority: detailPriority,
		RuleName: rule,
		TmpData:  tmp,
	}
}

/*
输入失败的请求和失败原因，无输出

该方法用于作为所有规则的错误回调：记录失败请求的地址、规则和keyVal；详情请求失败时放弃该申请的合并槽位，不影响其他申请和后续请求
*/
func (c *Controller) HandleError(req *spider.Request, err error) {
	key := req.TmpData.GetString(tmpKeyVal)
	c.logger.Error("request failed",
		zap.Error(err),
		zap.String("url", req.Url),
		zap.String("rule", req.RuleName),
		zap.String("keyVal", key),
	)
	if key != "" && (req.RuleName == RuleDetailsSummary || req.RuleName == RuleDetailsFurther) {
		c.agg.Abandon(key)
	}
}
