package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
	"diag-storefront/internal/infrastructure/razorpay"
	"diag-storefront/internal/session"
)

type fakeAPI struct {
	mu sync.Mutex

	packageErr      error
	removeItemErr   error
	listErr         error
	saveErr         error
	deleteErr       error
	removeCouponErr error
	orderErr        error
	bookingErr      error

	// beforeCouponReply runs while a coupon request is in flight.
	beforeCouponReply func()

	nextID    int64
	coupons   map[string]domain.AppliedCoupon
	members   []domain.Member
	addresses []domain.Address

	calls    []string
	packages []string
	removed  []int64
	orders   []domain.PaymentOrderRequest
	bookings []domain.BookingRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID: 100,
		coupons: map[string]domain.AppliedCoupon{
			"SAVE10": {ID: 1, Code: "SAVE10", DiscountType: domain.DiscountPercentage, DiscountValue: 10},
			"FLAT1000": {ID: 2, Code: "FLAT1000", DiscountType: domain.DiscountFixed, DiscountValue: 1000},
		},
		members: []domain.Member{
			{ID: 1, Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
			{ID: 2, Name: "Ravi"},
		},
		addresses: []domain.Address{
			{ID: 10, Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
			{ID: 11, Line1: "4 Park St", City: "Kolkata", State: "WB", Pincode: "700016"},
		},
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeAPI) CreatePackage(_ context.Context, _ string, name string, _ []domain.PackageItem) (int64, error) {
	f.record("CreatePackage")
	if f.packageErr != nil {
		return 0, f.packageErr
	}
	f.mu.Lock()
	f.packages = append(f.packages, name)
	f.mu.Unlock()
	return 42, nil
}

func (f *fakeAPI) RemovePackageItem(_ context.Context, _ string, _ int64, itemID int64) error {
	f.record("RemovePackageItem")
	if f.removeItemErr != nil {
		return f.removeItemErr
	}
	f.mu.Lock()
	f.removed = append(f.removed, itemID)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ListMembers(context.Context, string, string) ([]domain.Member, error) {
	f.record("ListMembers")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Member{}, f.members...), nil
}

func (f *fakeAPI) CreateMember(_ context.Context, _ string, m domain.Member) (domain.Member, error) {
	f.record("CreateMember")
	if f.saveErr != nil {
		return domain.Member{}, f.saveErr
	}
	m.ID = f.id()
	return m, nil
}

func (f *fakeAPI) UpdateMember(_ context.Context, _ string, id int64, m domain.Member) (domain.Member, error) {
	f.record("UpdateMember")
	if f.saveErr != nil {
		return domain.Member{}, f.saveErr
	}
	m.ID = id
	return m, nil
}

func (f *fakeAPI) DeleteMember(context.Context, string, int64) error {
	f.record("DeleteMember")
	return f.deleteErr
}

func (f *fakeAPI) ListAddresses(context.Context, string, string) ([]domain.Address, error) {
	f.record("ListAddresses")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Address{}, f.addresses...), nil
}

func (f *fakeAPI) CreateAddress(_ context.Context, _ string, a domain.Address) (domain.Address, error) {
	f.record("CreateAddress")
	if f.saveErr != nil {
		return domain.Address{}, f.saveErr
	}
	a.ID = f.id()
	return a, nil
}

func (f *fakeAPI) UpdateAddress(_ context.Context, _ string, id int64, a domain.Address) (domain.Address, error) {
	f.record("UpdateAddress")
	if f.saveErr != nil {
		return domain.Address{}, f.saveErr
	}
	a.ID = id
	return a, nil
}

func (f *fakeAPI) DeleteAddress(context.Context, string, int64) error {
	f.record("DeleteAddress")
	return f.deleteErr
}

func (f *fakeAPI) ApplyCoupon(_ context.Context, _ string, code string) (domain.AppliedCoupon, error) {
	f.record("ApplyCoupon")
	if f.beforeCouponReply != nil {
		f.beforeCouponReply()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.coupons[code]
	if !ok {
		return domain.AppliedCoupon{}, &api.Error{Status: 400, Message: "Coupon has expired"}
	}
	return cp, nil
}

func (f *fakeAPI) RemoveCoupon(context.Context, string) error {
	f.record("RemoveCoupon")
	return f.removeCouponErr
}

func (f *fakeAPI) CreatePaymentOrder(_ context.Context, _ string, req domain.PaymentOrderRequest) (domain.PaymentOrder, error) {
	f.record("CreatePaymentOrder")
	if f.orderErr != nil {
		return domain.PaymentOrder{}, f.orderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	return domain.PaymentOrder{OrderID: fmt.Sprintf("order_%d", len(f.orders)), Currency: "INR"}, nil
}

func (f *fakeAPI) CreateBooking(_ context.Context, _ string, req domain.BookingRequest) (domain.Booking, error) {
	f.record("CreateBooking")
	if f.bookingErr != nil {
		return domain.Booking{}, f.bookingErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, req)
	return domain.Booking{ID: 900, Status: "confirmed"}, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	err    error
	opened []razorpay.Options
	cbs    []razorpay.Callbacks
}

func (g *fakeGateway) Open(_ context.Context, opts razorpay.Options, cb razorpay.Callbacks) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened = append(g.opened, opts)
	g.cbs = append(g.cbs, cb)
	return nil
}

func (g *fakeGateway) last(t *testing.T) (razorpay.Options, razorpay.Callbacks) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.cbs, "gateway was never opened")
	return g.opened[len(g.opened)-1], g.cbs[len(g.cbs)-1]
}

type fakeReceipts struct {
	mu  sync.Mutex
	all []domain.BookingReceipt
}

func (r *fakeReceipts) PutReceipt(_ context.Context, rc *domain.BookingReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, *rc)
	return nil
}

func (r *fakeReceipts) list() []domain.BookingReceipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.BookingReceipt{}, r.all...)
}

type harness struct {
	c        *Controller
	api      *fakeAPI
	gateway  *fakeGateway
	receipts *fakeReceipts
	feed     *Feed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:      newFakeAPI(),
		gateway:  &fakeGateway{},
		receipts: &fakeReceipts{},
		feed:     NewFeed(100, nil),
	}
	h.c = New(Deps{
		API:      h.api,
		Gateway:  h.gateway,
		Sessions: session.Static{Token: "tok", UserID: "7"},
		Receipts: h.receipts,
		Notifier: h.feed,
	}, Config{RazorpayKey: "rzp_test_key", ResetDelay: time.Hour})
	t.Cleanup(h.c.Close)
	return h
}

var (
	bloodPanel = domain.CatalogEntry{ID: 1, Name: "Blood Panel", Price: 600, DiscountedPrice: 500}
	thyroid    = domain.CatalogEntry{ID: 2, Name: "Thyroid", Price: 400, DiscountedPrice: 300}
)

// readyToPay walks the flow to step 2 with 500+300 selected, member 1 and
// address 10.
func (h *harness) readyToPay(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	h.c.AddItem(bloodPanel, domain.ItemProduct)
	h.c.AddItem(thyroid, domain.ItemTest)
	require.NoError(t, h.c.CreatePackage(ctx, "Annual checkup"))
	require.NoError(t, h.c.ToggleMember(1))
	require.NoError(t, h.c.ToggleAddress(10))
	require.NoError(t, h.c.Next(ctx))
	require.Equal(t, StepPayment, h.c.Snapshot().Step)
}

func (h *harness) titles() []string {
	var out []string
	for _, n := range h.feed.Peek() {
		out = append(out, n.Title)
	}
	return out
}
