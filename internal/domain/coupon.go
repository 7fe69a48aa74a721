package domain

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// AppliedCoupon carries the server-authoritative discount fields.
type AppliedCoupon struct {
	ID            int64        `json:"id,omitempty"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	MinimumAmount *float64     `json:"minimumAmount,omitempty"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty"`
	UsageLimit    *int         `json:"usageLimit,omitempty"`
}
