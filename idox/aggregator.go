package idox

import (
	"sync"

	"go.uber.org/zap"
)

// 一个申请的合并槽位，两个标签页各自到达后写入
type slot struct {
	summary       *DetailsSummary
	further       *DetailsFurtherInformation
	summaryIssued bool
	furtherIssued bool
}

// 详情页到达后的处理结果
type Arrival struct {
	Record       *PlanningApplicationRecord // 两部分都到齐时的合并结果，否则为nil
	IssueSummary bool                       // 摘要页还没有发出请求，调用方需要补发
	IssueFurther bool                       // 详细信息页还没有发出请求，调用方需要补发
	Dropped      bool                       // 槽位已合并或已放弃，本次到达被丢弃
}

// 详情合并器：按申请的keyVal配对两个标签页，无论到达顺序如何，每个申请只产生一条记录
type Aggregator struct {
	lpa    string
	logger *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

func NewAggregator(lpa string, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		lpa:    lpa,
		logger: logger,
		slots:  make(map[string]*slot),
	}
}

/*
输入申请的keyVal和两个标签页是否已经发出请求，输出是否成功打开槽位

该方法用于在派发详情请求之前为申请创建合并槽位，同一个keyVal已有未完成的槽位时返回false，调用方不应再派发请求
*/
func (a *Aggregator) Open(key string, summaryIssued, furtherIssued bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.slots[key]; ok {
		return false
	}
	a.slots[key] = &slot{summaryIssued: summaryIssued, furtherIssued: furtherIssued}
	return true
}

/*
输入申请的keyVal和摘要字段，输出到达结果

该方法用于写入摘要标签页：详细信息已在槽位中时合并产生记录并释放槽位；否则保存摘要，并在详细信息页尚未发出请求时要求调用方补发
*/
func (a *Aggregator) PutSummary(key string, s DetailsSummary) Arrival {
	a.mu.Lock()
	defer a.mu.Unlock()

	sl, ok := a.slots[key]
	if !ok || sl.summary != nil {
		a.logger.Debug("summary arrived for closed slot", zap.String("keyVal", key))
		return Arrival{Dropped: true}
	}
	sl.summary = &s
	return a.settle(key, sl)
}

// 写入详细信息标签页，规则与PutSummary对称
func (a *Aggregator) PutFurther(key string, f DetailsFurtherInformation) Arrival {
	a.mu.Lock()
	defer a.mu.Unlock()

	sl, ok := a.slots[key]
	if !ok || sl.further != nil {
		a.logger.Debug("further information arrived for closed slot", zap.String("keyVal", key))
		return Arrival{Dropped: true}
	}
	sl.further = &f
	return a.settle(key, sl)
}

// 调用方持有锁
func (a *Aggregator) settle(key string, sl *slot) Arrival {
	if sl.summary != nil && sl.further != nil {
		delete(a.slots, key)
		return Arrival{Record: NewRecord(a.lpa, *sl.summary, *sl.further)}
	}

	var arr Arrival
	if sl.summary == nil && !sl.summaryIssued {
		sl.summaryIssued = true
		arr.IssueSummary = true
	}
	if sl.further == nil && !sl.furtherIssued {
		sl.furtherIssued = true
		arr.IssueFurther = true
	}
	return arr
}

// 放弃一个申请，之后到达的另一个标签页会被丢弃
func (a *Aggregator) Abandon(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.slots[key]; ok {
		delete(a.slots, key)
		a.logger.Debug("slot abandoned", zap.String("keyVal", key))
	}
}

// 尚未合并的申请数
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.slots)
}
