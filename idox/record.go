package idox

import (
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dszqbsm/planning/spider"
)

var (
	ErrMissingTable     = errors.New("details table not found")
	ErrMissingReference = errors.New("application reference not found")
)

const (
	summaryTableSelector = "#simpleDetailsTable"
	furtherTableSelector = "#applicationDetails"
)

// 摘要标签页中的字段，空串和nil表示页面上没有该字段
type DetailsSummary struct {
	Reference            string
	ApplicationReceived  *time.Time
	ApplicationValidated *time.Time
	Address              string
	Proposal             string
	AppealStatus         string
	AppealDecision       string
}

// 详细信息标签页中的字段
type DetailsFurtherInformation struct {
	ApplicationType                  string
	ExpectedDecisionLevel            string
	CaseOfficer                      string
	Parish                           string
	Ward                             string
	DistrictReference                string
	ApplicantName                    string
	ApplicantAddress                 string
	EnvironmentalAssessmentRequested string
}

/*
输入摘要标签页的文档，输出摘要字段和一个错误

该方法用于按列标签读取#simpleDetailsTable中的字段，缺少的字段留空；页面没有该表格、没有申请编号或日期无法解析时返回错误
*/
func ParseDetailsSummary(doc *goquery.Document) (DetailsSummary, error) {
	table := doc.Find(summaryTableSelector).First()
	if table.Length() == 0 {
		return DetailsSummary{}, fmt.Errorf("%w: %s", ErrMissingTable, summaryTableSelector)
	}

	reference := tableString(table, "Reference")
	if reference == "" {
		return DetailsSummary{}, ErrMissingReference
	}

	received, err := ParseDetailDate(tableString(table, "Application Received"))
	if err != nil {
		return DetailsSummary{}, err
	}
	validated, err := ParseDetailDate(tableString(table, "Application Validated"))
	if err != nil {
		return DetailsSummary{}, err
	}

	return DetailsSummary{
		Reference:            reference,
		ApplicationReceived:  received,
		ApplicationValidated: validated,
		Address:              tableString(table, "Address"),
		Proposal:             tableString(table, "Proposal"),
		AppealStatus:         tableString(table, "Appeal Status"),
		AppealDecision:       tableString(table, "Appeal Decision"),
	}, nil
}

// 按列标签读取#applicationDetails中的字段，页面没有该表格时返回ErrMissingTable
func ParseDetailsFurtherInformation(doc *goquery.Document) (DetailsFurtherInformation, error) {
	table := doc.Find(furtherTableSelector).First()
	if table.Length() == 0 {
		return DetailsFurtherInformation{}, fmt.Errorf("%w: %s", ErrMissingTable, furtherTableSelector)
	}

	return DetailsFurtherInformation{
		ApplicationType:                  tableString(table, "Application Type"),
		ExpectedDecisionLevel:            tableString(table, "Expected Decision Level"),
		CaseOfficer:                      tableString(table, "Case Officer"),
		Parish:                           tableString(table, "Parish"),
		Ward:                             tableString(table, "Ward"),
		DistrictReference:                tableString(table, "District Reference"),
		ApplicantName:                    tableString(table, "Applicant Name"),
		ApplicantAddress:                 tableString(table, "Applicant Address"),
		EnvironmentalAssessmentRequested: tableString(table, "Environmental Assessment Requested"),
	}, nil
}

// 一条完整的规划申请记录，由两个标签页的字段合并而成，交给存储器后不再修改
type PlanningApplicationRecord struct {
	LPA                              string     `json:"lpa" bson:"lpa"`
	Reference                        string     `json:"reference" bson:"reference"`
	ApplicationReceived              *time.Time `json:"application_received,omitempty" bson:"application_received,omitempty"`
	ApplicationValidated             *time.Time `json:"application_validated,omitempty" bson:"application_validated,omitempty"`
	Address                          string     `json:"address,omitempty" bson:"address,omitempty"`
	Proposal                         string     `json:"proposal,omitempty" bson:"proposal,omitempty"`
	AppealStatus                     string     `json:"appeal_status,omitempty" bson:"appeal_status,omitempty"`
	AppealDecision                   string     `json:"appeal_decision,omitempty" bson:"appeal_decision,omitempty"`
	ApplicationType                  string     `json:"application_type,omitempty" bson:"application_type,omitempty"`
	ExpectedDecisionLevel            string     `json:"expected_decision_level,omitempty" bson:"expected_decision_level,omitempty"`
	CaseOfficer                      string     `json:"case_officer,omitempty" bson:"case_officer,omitempty"`
	Parish                           string     `json:"parish,omitempty" bson:"parish,omitempty"`
	Ward                             string     `json:"ward,omitempty" bson:"ward,omitempty"`
	DistrictReference                string     `json:"district_reference,omitempty" bson:"district_reference,omitempty"`
	ApplicantName                    string     `json:"applicant_name,omitempty" bson:"applicant_name,omitempty"`
	ApplicantAddress                 string     `json:"applicant_address,omitempty" bson:"applicant_address,omitempty"`
	EnvironmentalAssessmentRequested string     `json:"environmental_assessment_requested,omitempty" bson:"environmental_assessment_requested,omitempty"`
}

// 合并两个标签页的字段
func NewRecord(lpa string, s DetailsSummary, f DetailsFurtherInformation) *PlanningApplicationRecord {
	return &PlanningApplicationRecord{
		LPA:                              lpa,
		Reference:                        s.Reference,
		ApplicationReceived:              s.ApplicationReceived,
		ApplicationValidated:             s.ApplicationValidated,
		Address:                          s.Address,
		Proposal:                         s.Proposal,
		AppealStatus:                     s.AppealStatus,
		AppealDecision:                   s.AppealDecision,
		ApplicationType:                  f.ApplicationType,
		ExpectedDecisionLevel:            f.ExpectedDecisionLevel,
		CaseOfficer:                      f.CaseOfficer,
		Parish:                           f.Parish,
		Ward:                             f.Ward,
		DistrictReference:                f.DistrictReference,
		ApplicantName:                    f.ApplicantName,
		ApplicantAddress:                 f.ApplicantAddress,
		EnvironmentalAssessmentRequested: f.EnvironmentalAssessmentRequested,
	}
}

var recordColumns = []spider.Column{
	{Name: "lpa", Type: "VARCHAR(255)"},
	{Name: "reference", Type: "VARCHAR(255)"},
	{Name: "application_received", Type: "DATE"},
	{Name: "application_validated", Type: "DATE"},
	{Name: "address", Type: "TEXT"},
	{Name: "proposal", Type: "TEXT"},
	{Name: "appeal_status", Type: "VARCHAR(255)"},
	{Name: "appeal_decision", Type: "VARCHAR(255)"},
	{Name: "application_type", Type: "VARCHAR(255)"},
	{Name: "expected_decision_level", Type: "VARCHAR(255)"},
	{Name: "case_officer", Type: "VARCHAR(255)"},
	{Name: "parish", Type: "VARCHAR(255)"},
	{Name: "ward", Type: "VARCHAR(255)"},
	{Name: "district_reference", Type: "VARCHAR(255)"},
	{Name: "applicant_name", Type: "VARCHAR(255)"},
	{Name: "applicant_address", Type: "TEXT"},
	{Name: "environmental_assessment_requested", Type: "VARCHAR(255)"},
}

func (r *PlanningApplicationRecord) TableName() string { return "planning_applications" }

func (r *PlanningApplicationRecord) Columns() []spider.Column { return recordColumns }

// 同一站点的申请编号唯一，重复爬取时覆盖旧记录
func (r *PlanningApplicationRecord) UniqueKey() []string { return []string{"lpa", "reference"} }

// 与Columns一一对应，lpa和reference之外缺失的字段写入NULL
func (r *PlanningApplicationRecord) Values() []interface{} {
	return []interface{}{
		r.LPA,
		r.Reference,
		nullDate(r.ApplicationReceived),
		nullDate(r.ApplicationValidated),
		nullString(r.Address),
		nullString(r.Proposal),
		nullString(r.AppealStatus),
		nullString(r.AppealDecision),
		nullString(r.ApplicationType),
		nullString(r.ExpectedDecisionLevel),
		nullString(r.CaseOfficer),
		nullString(r.Parish),
		nullString(r.Ward),
		nullString(r.DistrictReference),
		nullString(r.ApplicantName),
		nullString(r.ApplicantAddress),
		nullString(r.EnvironmentalAssessmentRequested),
	}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
