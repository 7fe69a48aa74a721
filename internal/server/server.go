package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diag-storefront/internal/catalog"
	"diag-storefront/internal/checkout"
	"diag-storefront/internal/config"
	"diag-storefront/internal/domain"
	"diag-storefront/internal/flows"
	"diag-storefront/internal/infrastructure/api"
	"diag-storefront/internal/infrastructure/razorpay"
	"diag-storefront/internal/session"
)

type ReceiptLister interface {
	ListReceipts(ctx context.Context, userID string, page, pageSize int) ([]domain.BookingReceipt, int, error)
}

type Deps struct {
	Flows    *flows.Registry
	Catalog  *catalog.Service
	Gateway  *razorpay.HostedGateway
	Receipts ReceiptLister
	// Fallback supplies a token when a request carries none.
	Fallback session.Source
	Log      *zap.Logger
}

type Server struct {
	cfg     config.Config
	deps    Deps
	log     *zap.Logger
	limiter *rateLimiter
	engine  *gin.Engine
}

func New(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		deps:    d,
		log:     d.Log,
		limiter: newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		engine:  gin.New(),
	}
	s.engine.Use(
		gin.CustomRecovery(s.recovered),
		requestID(),
		s.accessLog(),
		s.limiter.middleware(s),
		cors(),
	)
	s.engine.SetHTMLTemplate(razorpay.PageTemplate())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Close() {
	s.limiter.stop()
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", func(c *gin.Context) {
		s.json(c, http.StatusOK, gin.H{"status": "ok"})
	})

	cat := r.Group("/api/catalog")
	cat.GET("/products", s.handleCatalog(domain.ItemProduct))
	cat.GET("/tests", s.handleCatalog(domain.ItemTest))
	cat.POST("/refresh", s.auth(), s.handleCatalogRefresh)

	co := r.Group("/api/checkout", s.auth())
	co.GET("", s.handleSnapshot)
	co.POST("/items", s.handleAddItem)
	co.DELETE("/items/:type/:id", s.handleRemoveItem)
	co.POST("/package", s.handleCreatePackage)
	co.POST("/next", s.handleNext)
	co.POST("/back", s.handleBack)
	co.POST("/recipients", s.handleLoadRecipients)
	co.POST("/recipients/:kind", s.handleCreateRecipient)
	co.PUT("/recipients/:kind/:id", s.handleUpdateRecipient)
	co.POST("/recipients/:kind/:id/toggle", s.handleToggle)
	co.POST("/recipients/:kind/:id/delete", s.handleRequestDelete)
	co.POST("/deletion/confirm", s.handleConfirmDelete)
	co.POST("/deletion/cancel", s.handleCancelDelete)
	co.POST("/editor/:kind", s.handleEditor)
	co.POST("/coupon", s.handleApplyCoupon)
	co.DELETE("/coupon", s.handleRemoveCoupon)
	co.POST("/buy", s.handleBuyNow)
	co.GET("/notifications", s.handleNotifications)
	co.GET("/receipts", s.handleReceipts)
	co.POST("/reset", s.handleReset)

	r.GET("/pay/:orderId", s.handlePayPage)
	pay := r.Group("/api/payments/:orderId")
	pay.POST("/success", s.handlePaymentSuccess)
	pay.POST("/dismiss", s.handlePaymentDismiss)
	pay.POST("/failure", s.handlePaymentFailure)
}

func (s *Server) recovered(c *gin.Context, rec any) {
	s.log.Error("panic in handler", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path), zap.String("request_id", requestIDOf(c)))
	s.err(c, http.StatusInternalServerError, "ServerError", "internal error")
}

// fail maps a domain error onto the error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	var aerr *api.Error
	switch {
	case errors.As(err, &verr):
		s.err(c, http.StatusBadRequest, "BadRequest", verr.Message)
	case errors.Is(err, razorpay.ErrOrderMismatch):
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
	case errors.Is(err, session.ErrMissingToken):
		s.err(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, checkout.ErrBusy):
		s.err(c, http.StatusConflict, "Busy", err.Error())
	case errors.Is(err, checkout.ErrBookingNeedsSupport):
		s.err(c, http.StatusConflict, "NeedsSupport", err.Error())
	case errors.Is(err, checkout.ErrCouponAlreadyApplied),
		errors.Is(err, checkout.ErrPackageExists),
		errors.Is(err, checkout.ErrNoPackage),
		errors.Is(err, checkout.ErrWrongStep),
		errors.Is(err, checkout.ErrIllegalTransition):
		s.err(c, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, checkout.ErrRecipientNotFound),
		errors.Is(err, checkout.ErrNothingPending),
		errors.Is(err, catalog.ErrNotInCatalog),
		errors.Is(err, razorpay.ErrUnknownOrder):
		s.err(c, http.StatusNotFound, "NotFound", err.Error())
	case errors.As(err, &aerr):
		s.err(c, http.StatusBadGateway, "UpstreamError", api.Message(err, "upstream request failed"))
	default:
		s.log.Error("unhandled error", zap.String("path", c.Request.URL.Path), zap.String("request_id", requestIDOf(c)), zap.Error(err))
		s.err(c, http.StatusInternalServerError, "ServerError", "internal error")
	}
}

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": requestIDOf(c),
		},
	})
}

func (s *Server) json(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}
