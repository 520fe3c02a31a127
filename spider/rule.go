package spider

// 采集规则树
type RuleTree struct {
	Root  func() ([]*Request, error) // 根节点(执行入口)，用于生成任务的种子请求
	Trunk map[string]*Rule           // 规则哈希表存储当前任务所有规则
}

// 采集规则节点
type Rule struct {
	ParseFunc func(*Context) (ParseResult, error) // 内容解析函数
	ErrFunc   func(*Request, error)               // 请求最终失败时的回调，可为空
}
