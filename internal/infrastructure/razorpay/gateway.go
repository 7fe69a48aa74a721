package razorpay

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrUnknownOrder  = errors.New("no open checkout for order")
	ErrOrderMismatch = errors.New("payment response belongs to another order")
)

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color,omitempty"`
}

// Options mirrors the checkout.js constructor options, minus callbacks.
type Options struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// Response is what checkout.js hands to the success handler.
type Response struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type Failure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

func (f Failure) Error() string {
	if f.Description != "" {
		return f.Description
	}
	if f.Reason != "" {
		return f.Reason
	}
	return "payment failed"
}

type Callbacks struct {
	OnSuccess func(Response)
	OnDismiss func()
	OnFailure func(Failure)
}

type widget struct {
	opts Options
	cb   Callbacks
}

// HostedGateway serves the checkout widget from this process. Open registers
// the order and the page posts the widget outcome back. A failed payment
// leaves the widget open, as checkout.js lets the user retry in the same
// window; success or dismissal closes it and fires at most once per order.
// Nothing expires an abandoned widget.
type HostedGateway struct {
	PublicBaseURL string

	mu      sync.Mutex
	pending map[string]*widget
}

func NewHostedGateway(publicBaseURL string) *HostedGateway {
	return &HostedGateway{
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		pending:       make(map[string]*widget),
	}
}

func (g *HostedGateway) Open(_ context.Context, opts Options, cb Callbacks) error {
	if strings.TrimSpace(opts.Key) == "" {
		return errors.New("payment key not configured")
	}
	if strings.TrimSpace(opts.OrderID) == "" {
		return errors.New("order id required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[opts.OrderID] = &widget{opts: opts, cb: cb}
	return nil
}

func (g *HostedGateway) PayURL(orderID string) string {
	return g.PublicBaseURL + "/pay/" + orderID
}

func (g *HostedGateway) Options(orderID string) (Options, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.pending[orderID]
	if !ok {
		return Options{}, false
	}
	return w.opts, true
}

// Succeed closes the widget and hands the captured payment to its owner. A
// response naming a different order is rejected and the widget stays open.
func (g *HostedGateway) Succeed(orderID string, r Response) error {
	if r.OrderID != "" && r.OrderID != orderID {
		return ErrOrderMismatch
	}
	w, err := g.take(orderID)
	if err != nil {
		return err
	}
	r.OrderID = orderID
	if w.cb.OnSuccess != nil {
		w.cb.OnSuccess(r)
	}
	return nil
}

func (g *HostedGateway) Dismiss(orderID string) error {
	w, err := g.take(orderID)
	if err != nil {
		return err
	}
	if w.cb.OnDismiss != nil {
		w.cb.OnDismiss()
	}
	return nil
}

// Fail reports a declined attempt without closing the widget.
func (g *HostedGateway) Fail(orderID string, f Failure) error {
	g.mu.Lock()
	w, ok := g.pending[orderID]
	g.mu.Unlock()
	if !ok {
		return ErrUnknownOrder
	}
	if w.cb.OnFailure != nil {
		w.cb.OnFailure(f)
	}
	return nil
}

func (g *HostedGateway) take(orderID string) (*widget, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.pending[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	delete(g.pending, orderID)
	return w, nil
}
