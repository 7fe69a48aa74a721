package checkout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/api"
)

func (c *Controller) SetPackageName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.PackageName = name
	delete(c.st.FieldErrors, ErrPackageNameRequired.Field)
}

// CreatePackage persists the working set as a custom package and moves on
// to recipient selection. On failure the name and items are kept so the
// user can retry.
func (c *Controller) CreatePackage(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	if c.st.Package.Persisted() {
		c.mu.Unlock()
		return ErrPackageExists
	}
	if c.st.Loading.Package {
		c.mu.Unlock()
		return ErrBusy
	}
	c.st.PackageName = name
	c.st.FieldErrors = nil
	var verr *ValidationError
	switch {
	case name == "":
		verr = ErrPackageNameRequired
	case len(c.st.Items) == 0:
		verr = ErrItemsRequired
	}
	if verr != nil {
		c.st.FieldErrors = map[string]string{verr.Field: verr.Message}
		c.mu.Unlock()
		return verr
	}
	items := domain.PackageItemsOf(c.st.Items)
	c.st.Loading.Package = true
	gen := c.gen
	c.mu.Unlock()

	done := func() { c.st.Loading.Package = false }

	sess, err := c.session(ctx)
	if err != nil {
		c.finish(gen, done)
		return err
	}
	id, err := c.api.CreatePackage(ctx, sess.Token, name, items)
	if err != nil {
		c.finish(gen, done)
		c.log.Warn("create package failed", zap.String("name", name), zap.Error(err))
		c.notify(LevelError, "Package Creation Failed", api.Message(err, "Failed to create package. Please try again."))
		return fmt.Errorf("create package: %w", err)
	}

	ok := c.finish(gen, func() {
		done()
		c.st.Package = &domain.CustomPackage{ID: id, Name: name, Items: items}
		c.st.Step = StepRecipients
	})
	if !ok {
		return nil
	}
	c.log.Info("package created", zap.Int64("package_id", id), zap.Int("items", len(items)))
	c.notify(LevelSuccess, "Package Created", fmt.Sprintf("%s is ready. Choose who the tests are for.", name))

	// load failures are notified by LoadRecipients itself
	_ = c.LoadRecipients(ctx)
	return nil
}
