package idox

import (
	"errors"
	"fmt"
)

var ErrUnknownStatus = errors.New("unknown application status")

// 申请状态，ALL表示不过滤
type ApplicationStatus int

const (
	StatusAll ApplicationStatus = iota
	StatusAppealDecided
	StatusAppealLodged
	StatusAwaitingDecision
	StatusDecided
	StatusRegistered
	StatusUnknown
	StatusWithdrawn
)

var statusNames = [...]string{
	StatusAll:              "ALL",
	StatusAppealDecided:    "APPEAL_DECIDED",
	StatusAppealLodged:     "APPEAL_LODGED",
	StatusAwaitingDecision: "AWAITING_DECISION",
	StatusDecided:          "DECIDED",
	StatusRegistered:       "REGISTERED",
	StatusUnknown:          "UNKNOWN",
	StatusWithdrawn:        "WITHDRAWN",
}

// 搜索表单caseStatus下拉框的取值
var statusDisplay = [...]string{
	StatusAll:              "",
	StatusAppealDecided:    "Appeal decided",
	StatusAppealLodged:     "Appeal lodged",
	StatusAwaitingDecision: "Awaiting decision",
	StatusDecided:          "Decided",
	StatusRegistered:       "Registered",
	StatusUnknown:          "Unknown",
	StatusWithdrawn:        "Withdrawn",
}

func (s ApplicationStatus) valid() bool {
	return s >= StatusAll && int(s) < len(statusNames)
}

func (s ApplicationStatus) String() string {
	if !s.valid() {
		return fmt.Sprintf("ApplicationStatus(%d)", int(s))
	}
	return statusNames[s]
}

// 返回状态在站点上的显示值，StatusAll为空串
func (s ApplicationStatus) DisplayValue() string {
	if !s.valid() {
		return ""
	}
	return statusDisplay[s]
}

/*
输入一个状态字符串，输出对应的申请状态和一个错误

该方法用于解析配置中的状态过滤条件，接受站点显示值（如"Awaiting decision"）或枚举名（如"AWAITING_DECISION"），大小写敏感，其他取值返回ErrUnknownStatus
*/
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	for i, d := range statusDisplay {
		if raw == d {
			return ApplicationStatus(i), nil
		}
	}
	for i, n := range statusNames {
		if raw == n {
			return ApplicationStatus(i), nil
		}
	}
	return StatusAll, fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}
