package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diag-storefront/internal/infrastructure/razorpay"
)

// handlePayPage renders the hosted widget for an order opened by BuyNow.
func (s *Server) handlePayPage(c *gin.Context) {
	orderID := c.Param("orderId")
	opts, ok := s.deps.Gateway.Options(orderID)
	if !ok {
		s.err(c, http.StatusNotFound, "NotFound", razorpay.ErrUnknownOrder.Error())
		return
	}
	c.HTML(http.StatusOK, razorpay.PageName, razorpay.PageData{
		Options:      opts,
		CallbackBase: s.deps.Gateway.PublicBaseURL + "/api/payments/" + orderID,
	})
}

func (s *Server) handlePaymentSuccess(c *gin.Context) {
	orderID := c.Param("orderId")
	var resp razorpay.Response
	if err := c.ShouldBindJSON(&resp); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	if resp.PaymentID == "" {
		s.err(c, http.StatusBadRequest, "BadRequest", "razorpay_payment_id required")
		return
	}
	if err := s.deps.Gateway.Succeed(orderID, resp); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("payment success relayed", zap.String("order_id", orderID), zap.String("request_id", requestIDOf(c)))
	s.json(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePaymentDismiss(c *gin.Context) {
	orderID := c.Param("orderId")
	if err := s.deps.Gateway.Dismiss(orderID); err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePaymentFailure(c *gin.Context) {
	orderID := c.Param("orderId")
	var f razorpay.Failure
	if err := c.ShouldBindJSON(&f); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	if err := s.deps.Gateway.Fail(orderID, f); err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{"status": "ok"})
}
