package domain

import "time"

type PaymentOrderRequest struct {
	CustomPackageID int64  `json:"customPackageId"`
	CouponCode      string `json:"couponCode,omitempty"`
}

type PaymentOrder struct {
	OrderID  string  `json:"orderId"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

type BookingRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature,omitempty"`
	CustomPackageID   int64  `json:"customPackageId"`
	MemberID          int64  `json:"memberId"`
	AddressID         int64  `json:"addressId"`
	CouponCode        string `json:"couponCode,omitempty"`
}

type Booking struct {
	ID     int64  `json:"id"`
	Status string `json:"status,omitempty"`
}

type ReceiptStatus string

const (
	ReceiptConfirmed    ReceiptStatus = "confirmed"
	ReceiptNeedsSupport ReceiptStatus = "needs_support"
)

// BookingReceipt records the terminal outcome of a captured payment.
type BookingReceipt struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Status          ReceiptStatus `json:"status"`
	BookingID       int64         `json:"bookingId,omitempty"`
	CustomPackageID int64         `json:"customPackageId"`
	MemberID        int64         `json:"memberId"`
	AddressID       int64         `json:"addressId"`
	OrderID         string        `json:"orderId"`
	PaymentID       string        `json:"paymentId"`
	CouponCode      string        `json:"couponCode,omitempty"`
	AmountMinor     int64         `json:"amountMinor"`
	Currency        string        `json:"currency"`
	ErrorMsg        string        `json:"errorMsg,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}
