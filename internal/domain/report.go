// internal/domain/report.go
package domain

import "time"

// CompanyReport is the planner-facing view of one analysis run for a company:
// category totals plus the short lists a buyer works through each morning.
type CompanyReport struct {
	CompanyID         int64                  `json:"company_id"`
	CompanyName       string                 `json:"company_name"`
	AnalysisDate      time.Time              `json:"analysis_date"`
	CategoryCounts    map[ActionCategory]int `json:"category_counts"`
	OrderToday        []Recommendation       `json:"order_today"`
	AlreadyOrdered    []Recommendation       `json:"already_ordered"`
	AttentionRequired []Recommendation       `json:"attention_required"`
	GeneratedAt       time.Time              `json:"generated_at"`
}
