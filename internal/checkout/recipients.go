package checkout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
)

type EditorMode string

const (
	EditorListing EditorMode = "listing"
	EditorEditing EditorMode = "editing"
)

// Editor is the form state of one recipient kind. EditingID is zero while
// creating.
type Editor struct {
	Mode      EditorMode `json:"mode"`
	EditingID int64      `json:"editingId,omitempty"`
}

// PendingDelete is a deletion awaiting confirmation.
type PendingDelete struct {
	Kind    domain.RecipientKind `json:"kind"`
	Member  *domain.Member       `json:"member,omitempty"`
	Address *domain.Address      `json:"address,omitempty"`
}

func (p PendingDelete) id() int64 {
	if p.Member != nil {
		return p.Member.ID
	}
	if p.Address != nil {
		return p.Address.ID
	}
	return 0
}

func (p PendingDelete) clone() PendingDelete {
	out := PendingDelete{Kind: p.Kind}
	if p.Member != nil {
		m := *p.Member
		out.Member = &m
	}
	if p.Address != nil {
		a := *p.Address
		out.Address = &a
	}
	return out
}

func (c *Controller) editor(kind domain.RecipientKind) *Editor {
	if kind == domain.KindAddress {
		return &c.st.AddressEditor
	}
	return &c.st.MemberEditor
}

func (c *Controller) OpenCreateForm(kind domain.RecipientKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.editor(kind) = Editor{Mode: EditorEditing}
}

func (c *Controller) OpenEditForm(kind domain.RecipientKind, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasRecipient(kind, id) {
		return ErrRecipientNotFound
	}
	*c.editor(kind) = Editor{Mode: EditorEditing, EditingID: id}
	return nil
}

func (c *Controller) CancelEdit(kind domain.RecipientKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.editor(kind) = Editor{Mode: EditorListing}
}

// LoadRecipients replaces both mirrors with the server's lists. Selections
// that no longer exist remotely are dropped.
func (c *Controller) LoadRecipients(ctx context.Context) error {
	c.mu.Lock()
	if c.st.Loading.Recipients {
		c.mu.Unlock()
		return ErrBusy
	}
	c.st.Loading.Recipients = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.Recipients = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return err
	}
	members, err := c.api.ListMembers(ctx, sess.Token, sess.UserID)
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("list members failed", zap.Error(err))
		c.notify(LevelError, "Failed to Load Members", api.Message(err, "Could not load family members"))
		return fmt.Errorf("list members: %w", err)
	}
	addresses, err := c.api.ListAddresses(ctx, sess.Token, sess.UserID)
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("list addresses failed", zap.Error(err))
		c.notify(LevelError, "Failed to Load Addresses", api.Message(err, "Could not load addresses"))
		return fmt.Errorf("list addresses: %w", err)
	}

	c.finish(gen, func() {
		done()
		c.st.Members = append([]domain.Member{}, members...)
		c.st.Addresses = append([]domain.Address{}, addresses...)
		c.reconcileSelection()
	})
	return nil
}

func (c *Controller) CreateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	return c.saveMember(ctx, 0, m)
}

func (c *Controller) UpdateMember(ctx context.Context, id int64, m domain.Member) (domain.Member, error) {
	return c.saveMember(ctx, id, m)
}

func (c *Controller) saveMember(ctx context.Context, id int64, m domain.Member) (domain.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		verr := &ValidationError{Field: "name", Message: "Please enter the member's name"}
		c.notifyValidation(verr)
		return domain.Member{}, verr
	}
	c.mu.Lock()
	if id != 0 && !c.hasRecipient(domain.KindMember, id) {
		c.mu.Unlock()
		return domain.Member{}, ErrRecipientNotFound
	}
	if c.st.Loading.SavingMember {
		c.mu.Unlock()
		return domain.Member{}, ErrBusy
	}
	c.st.Loading.SavingMember = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.SavingMember = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return domain.Member{}, err
	}
	m.UserID = sess.UserID

	var saved domain.Member
	if id == 0 {
		saved, err = c.api.CreateMember(ctx, sess.Token, m)
	} else {
		saved, err = c.api.UpdateMember(ctx, sess.Token, id, m)
	}
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("save member failed", zap.Int64("member_id", id), zap.Error(err))
		c.notify(LevelError, "Failed to Save Member", api.Message(err, "Could not save family member"))
		return domain.Member{}, fmt.Errorf("save member: %w", err)
	}
	if saved.ID == 0 {
		saved.ID = id
	}

	c.finish(gen, func() {
		done()
		if id == 0 {
			c.st.Members = append(c.st.Members, saved)
		} else {
			replaceMember(c.st.Members, saved)
			replaceMember(c.st.SelectedMembers, saved)
		}
		c.st.MemberEditor = Editor{Mode: EditorListing}
	})
	if id == 0 {
		c.notify(LevelSuccess, "Member Added", fmt.Sprintf("%s was added", saved.Name))
	} else {
		c.notify(LevelSuccess, "Member Updated", fmt.Sprintf("%s was updated", saved.Name))
	}
	return saved, nil
}

func (c *Controller) CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	return c.saveAddress(ctx, 0, a)
}

func (c *Controller) UpdateAddress(ctx context.Context, id int64, a domain.Address) (domain.Address, error) {
	return c.saveAddress(ctx, id, a)
}

func (c *Controller) saveAddress(ctx context.Context, id int64, a domain.Address) (domain.Address, error) {
	if verr := validateAddress(a); verr != nil {
		c.notifyValidation(verr)
		return domain.Address{}, verr
	}
	c.mu.Lock()
	if id != 0 && !c.hasRecipient(domain.KindAddress, id) {
		c.mu.Unlock()
		return domain.Address{}, ErrRecipientNotFound
	}
	if c.st.Loading.SavingAddress {
		c.mu.Unlock()
		return domain.Address{}, ErrBusy
	}
	c.st.Loading.SavingAddress = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.SavingAddress = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return domain.Address{}, err
	}
	a.UserID = sess.UserID

	var saved domain.Address
	if id == 0 {
		saved, err = c.api.CreateAddress(ctx, sess.Token, a)
	} else {
		saved, err = c.api.UpdateAddress(ctx, sess.Token, id, a)
	}
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("save address failed", zap.Int64("address_id", id), zap.Error(err))
		c.notify(LevelError, "Failed to Save Address", api.Message(err, "Could not save address"))
		return domain.Address{}, fmt.Errorf("save address: %w", err)
	}
	if saved.ID == 0 {
		saved.ID = id
	}

	c.finish(gen, func() {
		done()
		if id == 0 {
			c.st.Addresses = append(c.st.Addresses, saved)
		} else {
			for i := range c.st.Addresses {
				if c.st.Addresses[i].ID == saved.ID {
					c.st.Addresses[i] = saved
				}
			}
			if c.st.SelectedAddress != nil && c.st.SelectedAddress.ID == saved.ID {
				sel := saved
				c.st.SelectedAddress = &sel
			}
		}
		c.st.AddressEditor = Editor{Mode: EditorListing}
	})
	if id == 0 {
		c.notify(LevelSuccess, "Address Added", "Address was added")
	} else {
		c.notify(LevelSuccess, "Address Updated", "Address was updated")
	}
	return saved, nil
}

func validateAddress(a domain.Address) *ValidationError {
	switch {
	case strings.TrimSpace(a.Line1) == "":
		return &ValidationError{Field: "addressLine1", Message: "Please enter the address"}
	case strings.TrimSpace(a.City) == "":
		return &ValidationError{Field: "city", Message: "Please enter the city"}
	case strings.TrimSpace(a.Pincode) == "":
		return &ValidationError{Field: "pincode", Message: "Please enter the pincode"}
	}
	return nil
}

// RequestDelete opens the confirmation for deleting a member or address.
func (c *Controller) RequestDelete(kind domain.RecipientKind, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pd := PendingDelete{Kind: kind}
	switch kind {
	case domain.KindMember:
		for _, m := range c.st.Members {
			if m.ID == id {
				m := m
				pd.Member = &m
			}
		}
	case domain.KindAddress:
		for _, a := range c.st.Addresses {
			if a.ID == id {
				a := a
				pd.Address = &a
			}
		}
	}
	if pd.Member == nil && pd.Address == nil {
		return ErrRecipientNotFound
	}
	c.st.PendingDelete = &pd
	return nil
}

func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.PendingDelete = nil
}

// ConfirmDelete deletes the pending entity remotely, then drops it from the
// mirror and the selection together. The confirmation closes either way.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.st.PendingDelete == nil {
		c.mu.Unlock()
		return ErrNothingPending
	}
	if c.st.Loading.Deleting {
		c.mu.Unlock()
		return ErrBusy
	}
	pd := c.st.PendingDelete.clone()
	c.st.Loading.Deleting = true
	gen := c.gen
	c.mu.Unlock()

	done := func() {
		c.st.Loading.Deleting = false
		c.st.PendingDelete = nil
	}

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return err
	}
	id := pd.id()
	if pd.Kind == domain.KindMember {
		err = c.api.DeleteMember(ctx, sess.Token, id)
	} else {
		err = c.api.DeleteAddress(ctx, sess.Token, id)
	}
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("delete recipient failed", zap.String("kind", string(pd.Kind)), zap.Int64("id", id), zap.Error(err))
		c.notify(LevelError, "Delete Failed", api.Message(err, fmt.Sprintf("Could not delete %s", pd.Kind)))
		return fmt.Errorf("delete %s: %w", pd.Kind, err)
	}

	c.finish(gen, func() {
		done()
		c.removeRecipient(pd.Kind, id)
	})
	if pd.Kind == domain.KindMember {
		c.notify(LevelSuccess, "Member Deleted", fmt.Sprintf("%s was removed", pd.Member.Name))
	} else {
		c.notify(LevelSuccess, "Address Deleted", "Address was removed")
	}
	return nil
}

// ToggleMember adds the member to the selection or removes it if present.
func (c *Controller) ToggleMember(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.st.SelectedMembers {
		if m.ID == id {
			c.st.SelectedMembers = append(c.st.SelectedMembers[:i], c.st.SelectedMembers[i+1:]...)
			return nil
		}
	}
	for _, m := range c.st.Members {
		if m.ID == id {
			c.st.SelectedMembers = append(c.st.SelectedMembers, m)
			return nil
		}
	}
	return ErrRecipientNotFound
}

// ToggleAddress selects a single address; toggling the selected one clears it.
func (c *Controller) ToggleAddress(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.SelectedAddress != nil && c.st.SelectedAddress.ID == id {
		c.st.SelectedAddress = nil
		return nil
	}
	for _, a := range c.st.Addresses {
		if a.ID == id {
			sel := a
			c.st.SelectedAddress = &sel
			return nil
		}
	}
	return ErrRecipientNotFound
}

func (c *Controller) recipientGuard() *ValidationError {
	if len(c.st.SelectedMembers) == 0 {
		return ErrMemberRequired
	}
	if c.st.SelectedAddress == nil {
		return ErrAddressRequired
	}
	return nil
}

func (c *Controller) hasRecipient(kind domain.RecipientKind, id int64) bool {
	if kind == domain.KindAddress {
		for _, a := range c.st.Addresses {
			if a.ID == id {
				return true
			}
		}
		return false
	}
	for _, m := range c.st.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) removeRecipient(kind domain.RecipientKind, id int64) {
	if kind == domain.KindAddress {
		kept := c.st.Addresses[:0]
		for _, a := range c.st.Addresses {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		c.st.Addresses = kept
		if c.st.SelectedAddress != nil && c.st.SelectedAddress.ID == id {
			c.st.SelectedAddress = nil
		}
		return
	}
	c.st.Members = filterMembers(c.st.Members, id)
	c.st.SelectedMembers = filterMembers(c.st.SelectedMembers, id)
}

func (c *Controller) reconcileSelection() {
	kept := make([]domain.Member, 0, len(c.st.SelectedMembers))
	for _, sel := range c.st.SelectedMembers {
		for _, m := range c.st.Members {
			if m.ID == sel.ID {
				kept = append(kept, m)
				break
			}
		}
	}
	c.st.SelectedMembers = kept
	if c.st.SelectedAddress == nil {
		return
	}
	for _, a := range c.st.Addresses {
		if a.ID == c.st.SelectedAddress.ID {
			sel := a
			c.st.SelectedAddress = &sel
			return
		}
	}
	c.st.SelectedAddress = nil
}

func filterMembers(ms []domain.Member, id int64) []domain.Member {
	kept := ms[:0]
	for _, m := range ms {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	return kept
}

func replaceMember(ms []domain.Member, m domain.Member) {
	for i := range ms {
		if ms[i].ID == m.ID {
			ms[i] = m
		}
	}
}
