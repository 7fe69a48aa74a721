package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
	"diag-storefront/internal/infrastructure/razorpay"
)

type PaymentState string

const (
	PaymentIdle           PaymentState = "idle"
	PaymentOrderCreated   PaymentState = "order_created"
	PaymentGatewayOpen    PaymentState = "gateway_open"
	PaymentSuccess        PaymentState = "payment_success"
	PaymentCancelled      PaymentState = "payment_cancelled"
	PaymentFailed         PaymentState = "payment_failed"
	PaymentBookingCreated PaymentState = "booking_created"
	PaymentBookingFailed  PaymentState = "booking_failed"
)

var paymentTransitions = map[PaymentState][]PaymentState{
	PaymentIdle:           {PaymentOrderCreated},
	PaymentOrderCreated:   {PaymentGatewayOpen, PaymentFailed},
	PaymentGatewayOpen:    {PaymentSuccess, PaymentCancelled, PaymentFailed},
	PaymentSuccess:        {PaymentBookingCreated, PaymentBookingFailed},
	PaymentCancelled:      {PaymentOrderCreated},
	PaymentFailed:         {PaymentOrderCreated, PaymentSuccess, PaymentCancelled},
	PaymentBookingCreated: {},
	PaymentBookingFailed:  {},
}

func CanTransitionTo(from, to PaymentState) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PaymentState) IsTerminal() bool {
	return s == PaymentBookingCreated || s == PaymentBookingFailed
}

func (s PaymentState) String() string {
	return string(s)
}

// attempt is one opened payment order. Gateway callbacks are matched
// against it by order id and flow generation.
type attempt struct {
	orderID    string
	gen        uint64
	packageID  int64
	memberID   int64
	addressID  int64
	couponCode string
	amount     int64
	currency   string
	// captured is set under mu once a success callback has been claimed.
	captured bool
}

func (at *attempt) receipt(r razorpay.Response) *domain.BookingReceipt {
	return &domain.BookingReceipt{
		ID:              uuid.NewString(),
		CustomPackageID: at.packageID,
		MemberID:        at.memberID,
		AddressID:       at.addressID,
		OrderID:         at.orderID,
		PaymentID:       r.PaymentID,
		CouponCode:      at.couponCode,
		AmountMinor:     at.amount,
		Currency:        at.currency,
	}
}

// Checkout is what the UI needs to show the widget for an opened order.
type Checkout struct {
	OrderID string           `json:"orderId"`
	Options razorpay.Options `json:"options"`
}

func (c *Controller) transition(to PaymentState) error {
	if !CanTransitionTo(c.st.Payment, to) {
		c.log.Error("illegal payment transition", zap.String("from", c.st.Payment.String()), zap.String("to", to.String()))
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.st.Payment, to)
	}
	c.st.Payment = to
	return nil
}

// BuyNow creates a payment order for the package and opens the gateway.
// The outcome arrives later through the gateway callbacks.
func (c *Controller) BuyNow(ctx context.Context) (Checkout, error) {
	c.mu.Lock()
	if c.st.Payment == PaymentBookingFailed {
		c.mu.Unlock()
		c.notify(LevelError, "Booking Failed", "Payment succeeded but booking failed. Please contact support.")
		return Checkout{}, ErrBookingNeedsSupport
	}
	if c.st.Loading.BuyNow {
		c.mu.Unlock()
		return Checkout{}, ErrBusy
	}
	if !CanTransitionTo(c.st.Payment, PaymentOrderCreated) {
		c.mu.Unlock()
		return Checkout{}, ErrIllegalTransition
	}
	if !c.st.Package.Persisted() {
		c.mu.Unlock()
		c.notify(LevelError, "Payment Error", "Please create your package first")
		return Checkout{}, ErrNoPackage
	}
	if c.st.Step != StepPayment {
		c.mu.Unlock()
		return Checkout{}, ErrWrongStep
	}
	if verr := c.recipientGuard(); verr != nil {
		c.mu.Unlock()
		c.notifyValidation(verr)
		return Checkout{}, verr
	}
	at := &attempt{
		gen:       c.gen,
		packageID: c.st.Package.ID,
		memberID:  c.st.SelectedMembers[0].ID,
		addressID: c.st.SelectedAddress.ID,
		amount:    MinorUnits(c.st.Pricing.Payable(c.st.Coupon != nil)),
		currency:  c.cfg.Currency,
	}
	if c.st.Coupon != nil {
		at.couponCode = c.st.Coupon.Code
	}
	prefill := prefillFor(c.st.SelectedMembers[0])
	c.st.Loading.BuyNow = true
	c.mu.Unlock()

	done := func() { c.st.Loading.BuyNow = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(at.gen, done)
		return Checkout{}, err
	}
	order, err := c.api.CreatePaymentOrder(ctx, sess.Token, domain.PaymentOrderRequest{
		CustomPackageID: at.packageID,
		CouponCode:      at.couponCode,
	})
	if err != nil {
		c.finish(at.gen, done)
		c.log.Warn("create payment order failed", zap.Int64("package_id", at.packageID), zap.Error(err))
		c.notify(LevelError, "Payment Error", api.Message(err, "Failed to create payment order. Please try again."))
		return Checkout{}, fmt.Errorf("create payment order: %w", err)
	}
	at.orderID = order.OrderID
	if order.Currency != "" {
		at.currency = order.Currency
	}

	opts := razorpay.Options{
		Key:         c.cfg.RazorpayKey,
		Amount:      at.amount,
		Currency:    at.currency,
		Name:        c.cfg.MerchantName,
		Description: c.cfg.Description,
		OrderID:     order.OrderID,
		Prefill:     prefill,
		Theme:       razorpay.Theme{Color: c.cfg.ThemeColor},
	}

	var terr error
	if !c.finish(at.gen, func() {
		if terr = c.transition(PaymentOrderCreated); terr != nil {
			return
		}
		c.attempt = at
		c.st.OrderID = at.orderID
		terr = c.transition(PaymentGatewayOpen)
	}) {
		return Checkout{}, ErrWrongStep
	}
	if terr != nil {
		c.finish(at.gen, done)
		return Checkout{}, terr
	}
	c.log.Info("payment order created", zap.String("order_id", at.orderID), zap.Int64("amount", at.amount), zap.String("currency", at.currency))

	cb := razorpay.Callbacks{
		OnSuccess: func(r razorpay.Response) { c.onPaymentSuccess(at, r) },
		OnDismiss: func() { c.onPaymentDismiss(at) },
		OnFailure: func(f razorpay.Failure) { c.onPaymentFailure(at, f) },
	}
	if err := c.gateway.Open(ctx, opts, cb); err != nil {
		c.finish(at.gen, func() {
			if c.current(at) && c.st.Payment == PaymentGatewayOpen {
				_ = c.transition(PaymentFailed)
			}
			done()
		})
		c.log.Error("open payment gateway failed", zap.String("order_id", at.orderID), zap.Error(err))
		c.notify(LevelError, "Payment Error", "Could not open the payment window. Please try again.")
		return Checkout{}, fmt.Errorf("open gateway: %w", err)
	}
	return Checkout{OrderID: at.orderID, Options: opts}, nil
}

func prefillFor(m domain.Member) razorpay.Prefill {
	p := razorpay.Prefill{Name: m.Name, Email: m.Email, Contact: m.Phone}
	if p.Name == "" {
		p.Name = "Customer"
	}
	if p.Email == "" {
		p.Email = "customer@example.com"
	}
	if p.Contact == "" {
		p.Contact = "9999999999"
	}
	return p
}

// current reports whether at is still the open attempt. Caller holds mu.
func (c *Controller) current(at *attempt) bool {
	return c.gen == at.gen && c.attempt == at
}

// awaitingOutcome reports whether the widget of the current attempt can
// still report. A declined payment leaves the window open for a retry.
// Caller holds mu.
func (c *Controller) awaitingOutcome() bool {
	return c.st.Payment == PaymentGatewayOpen || c.st.Payment == PaymentFailed
}

// claim moves the open attempt to `to`. Stale callbacks and callbacks after
// the window closed are rejected; a repeated failure is accepted as is.
func (c *Controller) claim(at *attempt, to PaymentState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(at) || !c.awaitingOutcome() {
		c.log.Warn("ignoring stale payment callback", zap.String("order_id", at.orderID), zap.String("state", c.st.Payment.String()))
		return false
	}
	if c.st.Payment != to {
		if err := c.transition(to); err != nil {
			return false
		}
	}
	if to == PaymentSuccess {
		at.captured = true
	}
	c.st.Loading.BuyNow = to == PaymentSuccess
	return true
}

func (c *Controller) wasCaptured(at *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return at.captured
}

// flagCapture records a payment that reached this flow but cannot be booked
// against its attempt, so support can reconcile it.
func (c *Controller) flagCapture(at *attempt, r razorpay.Response, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallbackTimeout)
	defer cancel()
	rc := at.receipt(r)
	rc.Status = domain.ReceiptNeedsSupport
	rc.ErrorMsg = reason
	if sess, err := c.sessions.Current(ctx); err == nil {
		rc.UserID = sess.UserID
	}
	c.record(ctx, rc)
	c.log.Error("payment capture not booked", zap.String("order_id", at.orderID), zap.String("payment_id", r.PaymentID), zap.String("reason", reason))
	c.notify(LevelError, "Payment Needs Review", "We received a payment we could not match to your order. Please contact support.")
}

func (c *Controller) onPaymentDismiss(at *attempt) {
	if !c.claim(at, PaymentCancelled) {
		return
	}
	c.log.Info("payment dismissed", zap.String("order_id", at.orderID))
	c.notify(LevelInfo, "Payment Cancelled", "You closed the payment window. Your package is saved.")
}

func (c *Controller) onPaymentFailure(at *attempt, f razorpay.Failure) {
	if !c.claim(at, PaymentFailed) {
		return
	}
	c.log.Warn("payment failed", zap.String("order_id", at.orderID), zap.String("code", f.Code), zap.String("reason", f.Reason))
	c.notify(LevelError, "Payment Failed", f.Error())
}

// onPaymentSuccess books the captured payment. A failed booking is terminal:
// the money is taken and support has to reconcile it from the receipt.
func (c *Controller) onPaymentSuccess(at *attempt, r razorpay.Response) {
	if r.OrderID != "" && r.OrderID != at.orderID {
		c.log.Warn("payment response for another order", zap.String("order_id", at.orderID), zap.String("response_order_id", r.OrderID))
		c.flagCapture(at, r, "payment response for order "+r.OrderID)
		c.claim(at, PaymentFailed)
		return
	}
	if !c.claim(at, PaymentSuccess) {
		if !c.wasCaptured(at) {
			c.flagCapture(at, r, "payment captured on a closed checkout")
		}
		return
	}
	c.log.Info("payment captured", zap.String("order_id", at.orderID), zap.String("payment_id", r.PaymentID))

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallbackTimeout)
	defer cancel()

	rc := at.receipt(r)

	booking, err := c.book(ctx, at, r, rc)
	if err != nil {
		c.finish(at.gen, func() {
			_ = c.transition(PaymentBookingFailed)
			c.st.Loading.BuyNow = false
		})
		rc.Status = domain.ReceiptNeedsSupport
		rc.ErrorMsg = err.Error()
		c.record(ctx, rc)
		c.log.Error("booking failed after payment", zap.String("order_id", at.orderID), zap.String("payment_id", r.PaymentID), zap.Error(err))
		c.notify(LevelError, "Booking Failed", "Payment succeeded but booking failed. Please contact support.")
		return
	}

	c.finish(at.gen, func() {
		_ = c.transition(PaymentBookingCreated)
		c.st.Loading.BuyNow = false
		b := booking
		c.st.Booking = &b
		c.scheduleReset(at.gen)
	})
	rc.Status = domain.ReceiptConfirmed
	rc.BookingID = booking.ID
	c.record(ctx, rc)
	c.log.Info("booking created", zap.Int64("booking_id", booking.ID), zap.String("order_id", at.orderID))
	c.notify(LevelSuccess, "Booking Confirmed", "Your tests are booked. We will be in touch shortly.")
}

func (c *Controller) book(ctx context.Context, at *attempt, r razorpay.Response, rc *domain.BookingReceipt) (domain.Booking, error) {
	sess, err := c.sessions.Current(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	rc.UserID = sess.UserID
	return c.api.CreateBooking(ctx, sess.Token, domain.BookingRequest{
		RazorpayOrderID:   at.orderID,
		RazorpayPaymentID: r.PaymentID,
		RazorpaySignature: r.Signature,
		CustomPackageID:   at.packageID,
		MemberID:          at.memberID,
		AddressID:         at.addressID,
		CouponCode:        at.couponCode,
	})
}

func (c *Controller) record(ctx context.Context, rc *domain.BookingReceipt) {
	if c.receipts == nil {
		return
	}
	rc.CreatedAt = time.Now().UTC()
	if err := c.receipts.PutReceipt(ctx, rc); err != nil {
		c.log.Error("record receipt failed", zap.String("receipt_id", rc.ID), zap.String("order_id", rc.OrderID), zap.Error(err))
	}
}

// scheduleReset restarts the flow after the confirmation has been shown.
// Caller holds mu.
func (c *Controller) scheduleReset(gen uint64) {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = time.AfterFunc(c.cfg.ResetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		c.resetTimer = nil
		c.resetLocked()
	})
}
