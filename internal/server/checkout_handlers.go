package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"diag-storefront/internal/checkout"
	"diag-storefront/internal/domain"
	"diag-storefront/internal/flows"
)

func (s *Server) handleCatalog(kind domain.ItemType) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := s.deps.Catalog.List(c.Request.Context(), kind)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.json(c, http.StatusOK, gin.H{"items": entries})
	}
}

func (s *Server) handleCatalogRefresh(c *gin.Context) {
	if err := s.deps.Catalog.Invalidate(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) state(c *gin.Context, f *flows.Flow) {
	s.json(c, http.StatusOK, f.Controller.Snapshot())
}

func (s *Server) handleSnapshot(c *gin.Context) {
	s.state(c, flowOf(c))
}

type addItemReq struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

func (s *Server) handleAddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	kind, err := domain.ParseItemType(req.Type)
	if err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	entry, err := s.deps.Catalog.Lookup(c.Request.Context(), req.ID, kind)
	if err != nil {
		s.fail(c, err)
		return
	}
	f := flowOf(c)
	f.Controller.AddItem(entry, kind)
	s.state(c, f)
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	kind, err := domain.ParseItemType(c.Param("type"))
	if err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	f := flowOf(c)
	if err := f.Controller.RemoveItem(c.Request.Context(), id, kind); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

type packageReq struct {
	Name string `json:"name"`
}

func (s *Server) handleCreatePackage(c *gin.Context) {
	var req packageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	f := flowOf(c)
	if err := f.Controller.CreatePackage(c.Request.Context(), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleNext(c *gin.Context) {
	f := flowOf(c)
	if err := f.Controller.Next(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleBack(c *gin.Context) {
	f := flowOf(c)
	if err := f.Controller.Back(); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleLoadRecipients(c *gin.Context) {
	f := flowOf(c)
	if err := f.Controller.LoadRecipients(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleCreateRecipient(c *gin.Context) {
	s.saveRecipient(c, 0)
}

func (s *Server) handleUpdateRecipient(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	s.saveRecipient(c, id)
}

func (s *Server) saveRecipient(c *gin.Context, id int64) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	f := flowOf(c)
	ctx := c.Request.Context()
	var err error
	switch kind {
	case domain.KindMember:
		var m domain.Member
		if err := c.ShouldBindJSON(&m); err != nil {
			s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
			return
		}
		if id == 0 {
			_, err = f.Controller.CreateMember(ctx, m)
		} else {
			_, err = f.Controller.UpdateMember(ctx, id, m)
		}
	case domain.KindAddress:
		var a domain.Address
		if err := c.ShouldBindJSON(&a); err != nil {
			s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
			return
		}
		if id == 0 {
			_, err = f.Controller.CreateAddress(ctx, a)
		} else {
			_, err = f.Controller.UpdateAddress(ctx, id, a)
		}
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleToggle(c *gin.Context) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	f := flowOf(c)
	var err error
	if kind == domain.KindMember {
		err = f.Controller.ToggleMember(id)
	} else {
		err = f.Controller.ToggleAddress(id)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleRequestDelete(c *gin.Context) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	f := flowOf(c)
	if err := f.Controller.RequestDelete(kind, id); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleConfirmDelete(c *gin.Context) {
	f := flowOf(c)
	if err := f.Controller.ConfirmDelete(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleCancelDelete(c *gin.Context) {
	f := flowOf(c)
	f.Controller.CancelDelete()
	s.state(c, f)
}

type editorReq struct {
	Action string `json:"action"`
	ID     int64  `json:"id"`
}

func (s *Server) handleEditor(c *gin.Context) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	var req editorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	f := flowOf(c)
	switch req.Action {
	case "create":
		f.Controller.OpenCreateForm(kind)
	case "edit":
		if err := f.Controller.OpenEditForm(kind, req.ID); err != nil {
			s.fail(c, err)
			return
		}
	case "cancel":
		f.Controller.CancelEdit(kind)
	default:
		s.err(c, http.StatusBadRequest, "BadRequest", "action must be create, edit or cancel")
		return
	}
	s.state(c, f)
}

type couponReq struct {
	Code string `json:"code"`
}

func (s *Server) handleApplyCoupon(c *gin.Context) {
	var req couponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	f := flowOf(c)
	if err := f.Controller.ApplyCoupon(c.Request.Context(), req.Code); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleRemoveCoupon(c *gin.Context) {
	f := flowOf(c)
	if err := f.Controller.RemoveCoupon(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.state(c, f)
}

func (s *Server) handleBuyNow(c *gin.Context) {
	f := flowOf(c)
	co, err := f.Controller.BuyNow(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{
		"orderId": co.OrderID,
		"payUrl":  s.deps.Gateway.PayURL(co.OrderID),
		"options": co.Options,
	})
}

func (s *Server) handleNotifications(c *gin.Context) {
	out := flowOf(c).Feed.Drain()
	if out == nil {
		out = []checkout.Notification{}
	}
	s.json(c, http.StatusOK, gin.H{"notifications": out})
}

func (s *Server) handleReceipts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	items, total := []domain.BookingReceipt{}, 0
	if s.deps.Receipts != nil {
		var err error
		items, total, err = s.deps.Receipts.ListReceipts(c.Request.Context(), flowOf(c).UserID, page, size)
		if err != nil {
			s.fail(c, err)
			return
		}
	}
	if items == nil {
		items = []domain.BookingReceipt{}
	}
	s.json(c, http.StatusOK, gin.H{"items": items, "total": total, "page": page, "pageSize": size})
}

func (s *Server) handleReset(c *gin.Context) {
	f := flowOf(c)
	f.Controller.Reset()
	s.state(c, f)
}

func (s *Server) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) kindParam(c *gin.Context) (domain.RecipientKind, bool) {
	kind, ok := domain.ParseRecipientKind(c.Param("kind"))
	if !ok {
		s.err(c, http.StatusBadRequest, "BadRequest", "kind must be member or address")
		return "", false
	}
	return kind, true
}
