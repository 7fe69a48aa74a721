package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"diag-storefront/internal/domain"
)

type productsResp struct {
	Products []domain.CatalogEntry `json:"products"`
	Data     []domain.CatalogEntry `json:"data"`
}

type testsResp struct {
	Tests []domain.CatalogEntry `json:"tests"`
	Data  []domain.CatalogEntry `json:"data"`
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	var out productsResp
	if err := c.do(ctx, http.MethodGet, "/api/products", "", nil, &out); err != nil {
		return nil, err
	}
	if out.Products != nil {
		return out.Products, nil
	}
	return out.Data, nil
}

func (c *Client) ListTests(ctx context.Context) ([]domain.CatalogEntry, error) {
	var out testsResp
	if err := c.do(ctx, http.MethodGet, "/api/tests", "", nil, &out); err != nil {
		return nil, err
	}
	if out.Tests != nil {
		return out.Tests, nil
	}
	return out.Data, nil
}

type createPackageReq struct {
	Name  string               `json:"name"`
	Items []domain.PackageItem `json:"items"`
}

type packageResp struct {
	ID            int64                 `json:"id"`
	CustomPackage *domain.CustomPackage `json:"customPackage"`
	Data          *domain.CustomPackage `json:"data"`
}

func (c *Client) CreatePackage(ctx context.Context, token, name string, items []domain.PackageItem) (int64, error) {
	var out packageResp
	if err := c.do(ctx, http.MethodPost, "/api/custom", token, createPackageReq{Name: name, Items: items}, &out); err != nil {
		return 0, err
	}
	switch {
	case out.ID != 0:
		return out.ID, nil
	case out.CustomPackage != nil && out.CustomPackage.ID != 0:
		return out.CustomPackage.ID, nil
	case out.Data != nil && out.Data.ID != 0:
		return out.Data.ID, nil
	}
	return 0, errors.New("package id missing from response")
}

func (c *Client) RemovePackageItem(ctx context.Context, token string, packageID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/custom/%d/items/%d", packageID, itemID), token, nil, nil)
}

type membersResp struct {
	Members []domain.Member `json:"members"`
	Member  *domain.Member  `json:"member"`
}

func (c *Client) ListMembers(ctx context.Context, token, userID string) ([]domain.Member, error) {
	var out membersResp
	if err := c.do(ctx, http.MethodGet, "/api/bookings/members/"+url.PathEscape(userID), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *Client) CreateMember(ctx context.Context, token string, m domain.Member) (domain.Member, error) {
	var out membersResp
	if err := c.do(ctx, http.MethodPost, "/api/bookings/members", token, m, &out); err != nil {
		return domain.Member{}, err
	}
	if out.Member == nil {
		return domain.Member{}, errors.New("member missing from response")
	}
	return *out.Member, nil
}

func (c *Client) UpdateMember(ctx context.Context, token string, id int64, m domain.Member) (domain.Member, error) {
	var out membersResp
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/bookings/members/%d", id), token, m, &out); err != nil {
		return domain.Member{}, err
	}
	if out.Member == nil {
		m.ID = id
		return m, nil
	}
	return *out.Member, nil
}

func (c *Client) DeleteMember(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/bookings/members/%d", id), token, nil, nil)
}

type addressesResp struct {
	Addresses []domain.Address `json:"addresses"`
	Address   *domain.Address  `json:"address"`
}

func (c *Client) ListAddresses(ctx context.Context, token, userID string) ([]domain.Address, error) {
	var out addressesResp
	if err := c.do(ctx, http.MethodGet, "/api/bookings/addresses/"+url.PathEscape(userID), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

func (c *Client) CreateAddress(ctx context.Context, token string, a domain.Address) (domain.Address, error) {
	var out addressesResp
	if err := c.do(ctx, http.MethodPost, "/api/bookings/addresses", token, a, &out); err != nil {
		return domain.Address{}, err
	}
	if out.Address == nil {
		return domain.Address{}, errors.New("address missing from response")
	}
	return *out.Address, nil
}

func (c *Client) UpdateAddress(ctx context.Context, token string, id int64, a domain.Address) (domain.Address, error) {
	var out addressesResp
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/bookings/addresses/%d", id), token, a, &out); err != nil {
		return domain.Address{}, err
	}
	if out.Address == nil {
		a.ID = id
		return a, nil
	}
	return *out.Address, nil
}

func (c *Client) DeleteAddress(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/bookings/addresses/%d", id), token, nil, nil)
}

type couponReq struct {
	Code string `json:"code"`
}

type couponResp struct {
	Coupon *domain.AppliedCoupon `json:"coupon"`
}

func (c *Client) ApplyCoupon(ctx context.Context, token, code string) (domain.AppliedCoupon, error) {
	var out couponResp
	if err := c.do(ctx, http.MethodPost, "/api/cart/apply-coupon", token, couponReq{Code: code}, &out); err != nil {
		return domain.AppliedCoupon{}, err
	}
	if out.Coupon == nil {
		return domain.AppliedCoupon{}, errors.New("coupon missing from response")
	}
	return *out.Coupon, nil
}

func (c *Client) RemoveCoupon(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/cart/remove-coupon", token, struct{}{}, nil)
}

func (c *Client) CreatePaymentOrder(ctx context.Context, token string, req domain.PaymentOrderRequest) (domain.PaymentOrder, error) {
	var out domain.PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/api/custom-bookings/create-payment-order", token, req, &out); err != nil {
		return domain.PaymentOrder{}, err
	}
	if out.OrderID == "" {
		return domain.PaymentOrder{}, errors.New("order id missing from response")
	}
	return out, nil
}

type bookingResp struct {
	Booking *domain.Booking `json:"booking"`
}

func (c *Client) CreateBooking(ctx context.Context, token string, req domain.BookingRequest) (domain.Booking, error) {
	var out bookingResp
	if err := c.do(ctx, http.MethodPost, "/api/custom-bookings/create-booking", token, req, &out); err != nil {
		return domain.Booking{}, err
	}
	if out.Booking == nil {
		return domain.Booking{}, nil
	}
	return *out.Booking, nil
}
