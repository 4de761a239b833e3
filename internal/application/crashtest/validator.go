package crashtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crashlab/crashlab/internal/domain/crashtest"
	"github.com/crashlab/crashlab/internal/domain/tenant"
)

// DataValidator gates every save. All collaborators are explicit; the
// validator holds no service state and is safe for concurrent use.
type DataValidator struct {
	tenants  tenant.Directory
	tests    crashtest.Repository
	validate *validator.Validate
}

// NewDataValidator creates a validator over the given collaborators.
func NewDataValidator(tenants tenant.Directory, tests crashtest.Repository) *DataValidator {
	return &DataValidator{
		tenants:  tenants,
		tests:    tests,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateSave runs the structural checks and, for records without an id,
// the tenant quota check. Both must pass before any store mutation.
func (v *DataValidator) ValidateSave(ctx context.Context, t *crashtest.Test) error {
	if err := v.validateData(ctx, t); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		return v.validateCreate(ctx, t)
	}
	return nil
}

// validateData checks required fields and that the owning tenant exists.
func (v *DataValidator) validateData(ctx context.Context, t *crashtest.Test) error {
	if err := v.validate.Struct(t); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				switch fe.Field() {
				case "Name":
					return crashtest.NewValidationError("test name should be specified")
				case "TenantID":
					return crashtest.NewValidationError("test should be assigned to tenant")
				}
			}
		}
		return fmt.Errorf("validating test: %w", err)
	}

	if _, err := v.tenants.FindByID(ctx, t.TenantID); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return crashtest.NewValidationError("test references a non-existent tenant")
		}
		return fmt.Errorf("resolving tenant %s: %w", t.TenantID, err)
	}
	return nil
}

// validateCreate enforces the tenant's test quota. The count check and the
// subsequent insert are not serialized, so concurrent creates can overshoot
// the ceiling by up to the number of concurrent writers minus one; closing
// that window needs a storage-level constraint.
func (v *DataValidator) validateCreate(ctx context.Context, t *crashtest.Test) error {
	profile, err := v.tenants.ProfileConfiguration(ctx, t.TenantID)
	if err != nil {
		return fmt.Errorf("resolving tenant profile %s: %w", t.TenantID, err)
	}

	count, err := v.tests.CountByTenantID(ctx, t.TenantID)
	if err != nil {
		return fmt.Errorf("counting tenant tests: %w", err)
	}

	if count >= profile.MaxTests {
		return fmt.Errorf("%w: tenant has %d of %d allowed tests",
			crashtest.ErrQuotaExceeded, count, profile.MaxTests)
	}
	return nil
}
