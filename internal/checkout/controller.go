package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/razorpay"
	"diag-storefront/internal/session"
)

type Step int

const (
	StepPackage Step = iota
	StepRecipients
	StepPayment
)

type PackageAPI interface {
	CreatePackage(ctx context.Context, token, name string, items []domain.PackageItem) (int64, error)
	RemovePackageItem(ctx context.Context, token string, packageID, itemID int64) error
}

type RecipientAPI interface {
	ListMembers(ctx context.Context, token, userID string) ([]domain.Member, error)
	CreateMember(ctx context.Context, token string, m domain.Member) (domain.Member, error)
	UpdateMember(ctx context.Context, token string, id int64, m domain.Member) (domain.Member, error)
	DeleteMember(ctx context.Context, token string, id int64) error
	ListAddresses(ctx context.Context, token, userID string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, token string, a domain.Address) (domain.Address, error)
	UpdateAddress(ctx context.Context, token string, id int64, a domain.Address) (domain.Address, error)
	DeleteAddress(ctx context.Context, token string, id int64) error
}

type CouponAPI interface {
	ApplyCoupon(ctx context.Context, token, code string) (domain.AppliedCoupon, error)
	RemoveCoupon(ctx context.Context, token string) error
}

type PaymentAPI interface {
	CreatePaymentOrder(ctx context.Context, token string, req domain.PaymentOrderRequest) (domain.PaymentOrder, error)
	CreateBooking(ctx context.Context, token string, req domain.BookingRequest) (domain.Booking, error)
}

// API is the remote surface the checkout flow talks to.
type API interface {
	PackageAPI
	RecipientAPI
	CouponAPI
	PaymentAPI
}

// Gateway opens the payment widget. Exactly one callback fires per Open,
// possibly before Open returns.
type Gateway interface {
	Open(ctx context.Context, opts razorpay.Options, cb razorpay.Callbacks) error
}

type ReceiptRepo interface {
	PutReceipt(ctx context.Context, rc *domain.BookingReceipt) error
}

type Config struct {
	RazorpayKey     string
	MerchantName    string
	Description     string
	Currency        string
	ThemeColor      string
	ResetDelay      time.Duration
	CallbackTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MerchantName:    "Diagnostics",
		Description:     "Custom diagnostic package",
		Currency:        "INR",
		ThemeColor:      "#2563eb",
		ResetDelay:      3 * time.Second,
		CallbackTimeout: 15 * time.Second,
	}
}

type Deps struct {
	API      API
	Gateway  Gateway
	Sessions session.Source
	Receipts ReceiptRepo
	Notifier Notifier
	Log      *zap.Logger
}

type Loading struct {
	Package       bool `json:"package"`
	Recipients    bool `json:"recipients"`
	SavingMember  bool `json:"savingMember"`
	SavingAddress bool `json:"savingAddress"`
	Deleting      bool `json:"deleting"`
	Coupon        bool `json:"coupon"`
	BuyNow        bool `json:"buyNow"`
}

// State is everything the checkout screen renders.
type State struct {
	Step            Step                  `json:"step"`
	PackageName     string                `json:"packageName"`
	Items           []domain.SelectedItem `json:"items"`
	Package         *domain.CustomPackage `json:"package,omitempty"`
	Members         []domain.Member       `json:"members"`
	Addresses       []domain.Address      `json:"addresses"`
	SelectedMembers []domain.Member       `json:"selectedMembers"`
	SelectedAddress *domain.Address       `json:"selectedAddress,omitempty"`
	MemberEditor    Editor                `json:"memberEditor"`
	AddressEditor   Editor                `json:"addressEditor"`
	PendingDelete   *PendingDelete        `json:"pendingDelete,omitempty"`
	Coupon          *domain.AppliedCoupon `json:"coupon,omitempty"`
	Pricing         Pricing               `json:"pricing"`
	Display         DisplayPricing        `json:"display"`
	Loading         Loading               `json:"loading"`
	Payment         PaymentState          `json:"payment"`
	OrderID         string                `json:"orderId,omitempty"`
	Booking         *domain.Booking       `json:"booking,omitempty"`
	FieldErrors     map[string]string     `json:"fieldErrors,omitempty"`
}

func initialState() State {
	s := State{
		Items:           []domain.SelectedItem{},
		Members:         []domain.Member{},
		Addresses:       []domain.Address{},
		SelectedMembers: []domain.Member{},
		MemberEditor:    Editor{Mode: EditorListing},
		AddressEditor:   Editor{Mode: EditorListing},
		Payment:         PaymentIdle,
	}
	s.Display = s.Pricing.Display()
	return s
}

// Controller drives one user's checkout. The mutex guards state only and is
// never held across a remote call or a gateway callback. Every reset bumps
// gen so that results of calls started earlier are dropped.
type Controller struct {
	api      API
	gateway  Gateway
	sessions session.Source
	receipts ReceiptRepo
	notifier Notifier
	log      *zap.Logger
	cfg      Config

	mu         sync.Mutex
	st         State
	attempt    *attempt
	gen        uint64
	resetTimer *time.Timer
}

func New(d Deps, cfg Config) *Controller {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = NewFeed(0, d.Log)
	}
	def := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.MerchantName == "" {
		cfg.MerchantName = def.MerchantName
	}
	if cfg.Description == "" {
		cfg.Description = def.Description
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = def.ThemeColor
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = def.CallbackTimeout
	}
	return &Controller{
		api:      d.API,
		gateway:  d.Gateway,
		sessions: d.Sessions,
		receipts: d.Receipts,
		notifier: d.Notifier,
		log:      d.Log,
		cfg:      cfg,
		st:       initialState(),
	}
}

func (c *Controller) Notifier() Notifier { return c.notifier }

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.clone()
}

// Next advances one step when the current step's guard passes.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	switch c.st.Step {
	case StepPackage:
		if !c.st.Package.Persisted() {
			c.mu.Unlock()
			c.notify(LevelError, "Package Required", "Please create your package first")
			return ErrNoPackage
		}
		c.st.Step = StepRecipients
		c.mu.Unlock()
		if err := c.LoadRecipients(ctx); err != nil {
			c.log.Warn("recipient load on step entry failed", zap.Error(err))
		}
		return nil
	case StepRecipients:
		if err := c.recipientGuard(); err != nil {
			c.mu.Unlock()
			c.notifyValidation(err)
			return err
		}
		c.st.Step = StepPayment
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrWrongStep
	}
}

func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.Step == StepPackage {
		return ErrWrongStep
	}
	c.st.Step--
	return nil
}

// Reset discards the whole flow and starts over at step 0.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.gen++
	c.st = initialState()
	c.attempt = nil
}

// Close stops a pending post-booking reset.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// recompute is the only writer of the derived pricing fields.
func (c *Controller) recompute() {
	c.st.Pricing = ComputePricing(c.st.Items, c.st.Coupon)
	c.st.Display = c.st.Pricing.Display()
}

// finish applies fn unless the flow was reset since gen was taken.
func (c *Controller) finish(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	fn()
	return true
}

func (c *Controller) session(ctx context.Context) (session.Session, error) {
	if c.sessions == nil {
		c.notify(LevelError, "Authentication Required", session.ErrMissingToken.Error())
		return session.Session{}, session.ErrMissingToken
	}
	s, err := c.sessions.Current(ctx)
	if err != nil {
		c.notify(LevelError, "Authentication Required", "Please log in to continue")
		return session.Session{}, err
	}
	return s, nil
}

func (c *Controller) notify(level Level, title, msg string) {
	c.notifier.Notify(Notification{Level: level, Title: title, Message: msg})
}

func (c *Controller) notifyValidation(err *ValidationError) {
	title := "Validation Error"
	switch err {
	case ErrMemberRequired:
		title = "Member Required"
	case ErrAddressRequired:
		title = "Address Required"
	}
	c.notify(LevelError, title, err.Message)
}

func (s State) clone() State {
	out := s
	out.Items = append([]domain.SelectedItem{}, s.Items...)
	out.Members = append([]domain.Member{}, s.Members...)
	out.Addresses = append([]domain.Address{}, s.Addresses...)
	out.SelectedMembers = append([]domain.Member{}, s.SelectedMembers...)
	if s.Package != nil {
		p := *s.Package
		p.Items = append([]domain.PackageItem{}, s.Package.Items...)
		out.Package = &p
	}
	if s.SelectedAddress != nil {
		a := *s.SelectedAddress
		out.SelectedAddress = &a
	}
	if s.PendingDelete != nil {
		pd := s.PendingDelete.clone()
		out.PendingDelete = &pd
	}
	if s.Coupon != nil {
		cp := *s.Coupon
		out.Coupon = &cp
	}
	if s.Booking != nil {
		b := *s.Booking
		out.Booking = &b
	}
	if s.FieldErrors != nil {
		out.FieldErrors = make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	return out
}
