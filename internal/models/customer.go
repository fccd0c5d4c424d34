package models

import (
	"time"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// LinkLimit returns how many links the plan allows.
func (p Plan) LinkLimit() int {
	switch p {
	case PlanPro:
		return 1000
	case PlanEnterprise:
		return 10000
	default:
		return 50
	}
}

type Customer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Plan        Plan      `json:"plan"`
	MonthlyFee  float64   `json:"monthlyFee"`
	LinksCount  int       `json:"linksCount"`
	TotalClicks int       `json:"totalClicks"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CustomersDocument is the second persisted document, independent of the links store.
type CustomersDocument struct {
	Customers map[string]*Customer `json:"customers"`
}

type CustomerStats struct {
	TotalLinks  int     `json:"total_links"`
	TotalClicks int     `json:"total_clicks"`
	PlanLimit   int     `json:"plan_limit"`
	Plan        string  `json:"plan"`
	MonthlyFee  float64 `json:"monthly_fee"`
}
