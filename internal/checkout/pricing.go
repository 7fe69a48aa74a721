package checkout

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
)

// Pricing is derived state. It is only ever produced by ComputePricing.
type Pricing struct {
	OriginalTotal   float64 `json:"originalTotal"`
	DiscountAmount  float64 `json:"discountAmount"`
	DiscountedTotal float64 `json:"discountedTotal"`
}

// ComputePricing sums discounted prices and applies the coupon against the
// current total. Coupon limits (minimum amount, expiry) are not re-checked
// here; the server validated them when the coupon was applied.
func ComputePricing(items []domain.SelectedItem, coupon *domain.AppliedCoupon) Pricing {
	var total float64
	for _, it := range items {
		total += it.DiscountedPrice
	}
	p := Pricing{OriginalTotal: total, DiscountedTotal: total}
	if coupon == nil {
		return p
	}
	switch coupon.DiscountType {
	case domain.DiscountPercentage:
		p.DiscountAmount = total * coupon.DiscountValue / 100
	case domain.DiscountFixed:
		p.DiscountAmount = coupon.DiscountValue
	}
	p.DiscountedTotal = math.Max(0, total-p.DiscountAmount)
	return p
}

// Payable is the amount handed to the payment widget.
func (p Pricing) Payable(couponApplied bool) float64 {
	if couponApplied {
		return p.DiscountedTotal
	}
	return p.OriginalTotal
}

func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

type DisplayPricing struct {
	OriginalTotal   string `json:"originalTotal"`
	DiscountAmount  string `json:"discountAmount"`
	DiscountedTotal string `json:"discountedTotal"`
}

func (p Pricing) Display() DisplayPricing {
	return DisplayPricing{
		OriginalTotal:   FormatAmount(p.OriginalTotal),
		DiscountAmount:  FormatAmount(p.DiscountAmount),
		DiscountedTotal: FormatAmount(p.DiscountedTotal),
	}
}

// ApplyCoupon validates code remotely and stores the returned coupon. Only
// one coupon can be applied at a time.
func (c *Controller) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		c.notifyValidation(ErrCouponCodeRequired)
		return ErrCouponCodeRequired
	}
	c.mu.Lock()
	if c.st.Coupon != nil {
		c.mu.Unlock()
		return ErrCouponAlreadyApplied
	}
	if c.st.Loading.Coupon {
		c.mu.Unlock()
		return ErrBusy
	}
	c.st.Loading.Coupon = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.Coupon = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return err
	}
	coupon, err := c.api.ApplyCoupon(ctx, sess.Token, code)
	if err != nil {
		c.finish(gen, done)
		c.log.Info("coupon rejected", zap.String("code", code), zap.Error(err))
		c.notify(LevelError, "Invalid Coupon", api.Message(err, "Failed to apply coupon"))
		return fmt.Errorf("apply coupon: %w", err)
	}
	if coupon.Code == "" {
		coupon.Code = code
	}

	var saved float64
	if !c.finish(gen, func() {
		done()
		c.st.Coupon = &coupon
		c.recompute()
		saved = c.st.Pricing.DiscountAmount
	}) {
		return nil
	}
	c.notify(LevelSuccess, "Coupon Applied", fmt.Sprintf("%s applied. You save %s", coupon.Code, FormatAmount(saved)))
	return nil
}

// RemoveCoupon clears the applied coupon after the server confirms. Removing
// when nothing is applied is a no-op.
func (c *Controller) RemoveCoupon(ctx context.Context) error {
	c.mu.Lock()
	if c.st.Coupon == nil {
		c.mu.Unlock()
		return nil
	}
	if c.st.Loading.Coupon {
		c.mu.Unlock()
		return ErrBusy
	}
	c.st.Loading.Coupon = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.Coupon = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return err
	}
	if err := c.api.RemoveCoupon(ctx, sess.Token); err != nil {
		c.finish(gen, done)
		c.log.Warn("remove coupon failed", zap.Error(err))
		c.notify(LevelError, "Coupon Error", api.Message(err, "Failed to remove coupon"))
		return fmt.Errorf("remove coupon: %w", err)
	}
	if !c.finish(gen, func() {
		done()
		c.st.Coupon = nil
		c.recompute()
	}) {
		return nil
	}
	c.notify(LevelInfo, "Coupon Removed", "The coupon was removed from your order")
	return nil
}
