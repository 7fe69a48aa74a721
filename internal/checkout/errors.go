package checkout

import "errors"

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrPackageNameRequired = &ValidationError{Field: "name", Message: "Please enter a package name"}
	ErrItemsRequired       = &ValidationError{Field: "items", Message: "Please select at least one product or test"}
	ErrMemberRequired      = &ValidationError{Field: "members", Message: "Please select at least one family member"}
	ErrAddressRequired     = &ValidationError{Field: "address", Message: "Please select an address"}
	ErrCouponCodeRequired  = &ValidationError{Field: "coupon", Message: "Please enter a coupon code"}
)

var (
	ErrBusy                 = errors.New("another request is already in progress")
	ErrNoPackage            = errors.New("create your package first")
	ErrPackageExists        = errors.New("package already created for this checkout")
	ErrWrongStep            = errors.New("action not available at this step")
	ErrCouponAlreadyApplied = errors.New("remove the applied coupon first")
	ErrRecipientNotFound    = errors.New("member or address not found")
	ErrNothingPending       = errors.New("no deletion awaiting confirmation")
	ErrIllegalTransition    = errors.New("illegal transition of payment state")
	ErrBookingNeedsSupport  = errors.New("payment succeeded but booking failed, please contact support")
)
