package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diag-storefront/internal/domain"
)

func items(prices ...float64) []domain.SelectedItem {
	out := make([]domain.SelectedItem, len(prices))
	for i, p := range prices {
		out[i] = domain.SelectedItem{ID: int64(i + 1), DiscountedPrice: p, Price: p + 100, Type: domain.ItemTest}
	}
	return out
}

func TestComputePricing(t *testing.T) {
	pct := func(v float64) *domain.AppliedCoupon {
		return &domain.AppliedCoupon{Code: "P", DiscountType: domain.DiscountPercentage, DiscountValue: v}
	}
	fixed := func(v float64) *domain.AppliedCoupon {
		return &domain.AppliedCoupon{Code: "F", DiscountType: domain.DiscountFixed, DiscountValue: v}
	}

	cases := []struct {
		name   string
		items  []domain.SelectedItem
		coupon *domain.AppliedCoupon
		want   Pricing
	}{
		{"empty", nil, nil, Pricing{}},
		{"no coupon", items(500, 300), nil, Pricing{OriginalTotal: 800, DiscountedTotal: 800}},
		{"percentage", items(500, 300), pct(10), Pricing{OriginalTotal: 800, DiscountAmount: 80, DiscountedTotal: 720}},
		{"fixed", items(500, 300), fixed(100), Pricing{OriginalTotal: 800, DiscountAmount: 100, DiscountedTotal: 700}},
		{"fixed above total floors at zero", items(500), fixed(1000), Pricing{OriginalTotal: 500, DiscountAmount: 1000, DiscountedTotal: 0}},
		{"unknown type", items(500), &domain.AppliedCoupon{DiscountType: "bogus", DiscountValue: 5}, Pricing{OriginalTotal: 500, DiscountedTotal: 500}},
		{"uses discounted price", []domain.SelectedItem{{ID: 1, Price: 999, DiscountedPrice: 199}}, nil, Pricing{OriginalTotal: 199, DiscountedTotal: 199}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePricing(tc.items, tc.coupon)
			assert.InDelta(t, tc.want.OriginalTotal, got.OriginalTotal, 1e-9)
			assert.InDelta(t, tc.want.DiscountAmount, got.DiscountAmount, 1e-9)
			assert.InDelta(t, tc.want.DiscountedTotal, got.DiscountedTotal, 1e-9)
		})
	}
}

func TestFormatAmountAndMinorUnits(t *testing.T) {
	assert.Equal(t, "720.00", FormatAmount(720))
	assert.Equal(t, "33.33", FormatAmount(100.0/3))
	assert.Equal(t, int64(72000), MinorUnits(720))
	assert.Equal(t, int64(3333), MinorUnits(100.0/3))
	assert.Equal(t, int64(1999), MinorUnits(19.99))
}

func TestApplyCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.c.AddItem(bloodPanel, domain.ItemProduct)
	h.c.AddItem(thyroid, domain.ItemTest)

	require.NoError(t, h.c.ApplyCoupon(ctx, "  SAVE10 "))
	st := h.c.Snapshot()
	require.NotNil(t, st.Coupon)
	assert.Equal(t, "SAVE10", st.Coupon.Code)
	assert.InDelta(t, 80, st.Pricing.DiscountAmount, 1e-9)
	assert.Equal(t, "720.00", st.Display.DiscountedTotal)
	assert.False(t, st.Loading.Coupon)

	err := h.c.ApplyCoupon(ctx, "FLAT1000")
	assert.ErrorIs(t, err, ErrCouponAlreadyApplied)
	assert.Equal(t, 1, h.api.callCount("ApplyCoupon"))
}

func TestApplyCoupon_ResetWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.c.AddItem(bloodPanel, domain.ItemProduct)
	h.api.beforeCouponReply = h.c.Reset

	require.NoError(t, h.c.ApplyCoupon(context.Background(), "SAVE10"))

	st := h.c.Snapshot()
	assert.Nil(t, st.Coupon)
	assert.Empty(t, st.Items)
	assert.False(t, st.Loading.Coupon)
	assert.NotContains(t, h.titles(), "Coupon Applied")
}

func TestApplyCoupon_Rejected(t *testing.T) {
	h := newHarness(t)
	h.c.AddItem(bloodPanel, domain.ItemProduct)

	err := h.c.ApplyCoupon(context.Background(), "OLD")
	require.Error(t, err)
	st := h.c.Snapshot()
	assert.Nil(t, st.Coupon)
	assert.False(t, st.Loading.Coupon)
	last := h.feed.Peek()[len(h.feed.Peek())-1]
	assert.Equal(t, "Invalid Coupon", last.Title)
	assert.Equal(t, "Coupon has expired", last.Message)
}

func TestApplyCoupon_EmptyCode(t *testing.T) {
	h := newHarness(t)
	err := h.c.ApplyCoupon(context.Background(), "   ")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "coupon", verr.Field)
	assert.Zero(t, h.api.callCount("ApplyCoupon"))
}

func TestRemoveCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.c.AddItem(bloodPanel, domain.ItemProduct)
	require.NoError(t, h.c.ApplyCoupon(ctx, "SAVE10"))

	h.api.removeCouponErr = errors.New("boom")
	require.Error(t, h.c.RemoveCoupon(ctx))
	assert.NotNil(t, h.c.Snapshot().Coupon)

	h.api.removeCouponErr = nil
	require.NoError(t, h.c.RemoveCoupon(ctx))
	st := h.c.Snapshot()
	assert.Nil(t, st.Coupon)
	assert.Equal(t, st.Pricing.OriginalTotal, st.Pricing.DiscountedTotal)
	assert.Zero(t, st.Pricing.DiscountAmount)

	require.NoError(t, h.c.RemoveCoupon(ctx))
	assert.Equal(t, 2, h.api.callCount("RemoveCoupon"))
}

func TestCouponRecomputesWhenItemsChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.c.AddItem(bloodPanel, domain.ItemProduct)
	require.NoError(t, h.c.ApplyCoupon(ctx, "SAVE10"))
	assert.InDelta(t, 450, h.c.Snapshot().Pricing.DiscountedTotal, 1e-9)

	h.c.AddItem(thyroid, domain.ItemTest)
	assert.InDelta(t, 720, h.c.Snapshot().Pricing.DiscountedTotal, 1e-9)

	require.NoError(t, h.c.RemoveItem(ctx, bloodPanel.ID, domain.ItemProduct))
	assert.InDelta(t, 270, h.c.Snapshot().Pricing.DiscountedTotal, 1e-9)
}
