package capacity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Plan is the minimal shape of a subscription plan the policy needs.
type Plan struct {
	ID          uuid.UUID
	Code        string
	Name        string
	MaxAdmins   int
	MaxDoctors  int
	MaxPatients int
}

// Repository is what the policy needs from storage. The directory's pgx
// repository implements it, so a transaction-scoped repository can be
// handed in to serialize count-then-create per tenant.
type Repository interface {
	// ActivePlan resolves the tenant's active subscription plan, nil when
	// the tenant has none.
	ActivePlan(ctx context.Context, tenantID uuid.UUID) (*Plan, error)

	CountAdmins(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountActiveDoctors(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountActivePatients(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Check is the outcome of a capacity question. Current and Limit feed the
// PLAN_LIMIT_EXCEEDED error the caller builds from a disallowed check.
type Check struct {
	Allowed bool
	Current int
	Limit   int
	Message string
}

type Policy struct {
	repo     Repository
	fallback Plan // used when a tenant has no active subscription
}

func NewPolicy(repo Repository, fallback Plan) *Policy {
	return &Policy{repo: repo, fallback: fallback}
}

// plan resolves the effective plan, falling back deterministically to the
// configured free tier when no subscription is active.
func (p *Policy) plan(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	active, err := p.repo.ActivePlan(ctx, tenantID)
	if err != nil {
		return Plan{}, fmt.Errorf("resolve active plan: %w", err)
	}
	if active == nil {
		return p.fallback, nil
	}
	return *active, nil
}

// CheckRoleLimitForNewUser gates staff-user creation. Only roles in the
// admin bucket are capped; doctor and staff accounts are not (doctor
// entities have their own limit).
func (p *Policy) CheckRoleLimitForNewUser(ctx context.Context, tenantID uuid.UUID, role Role) (Check, error) {
	if !role.CountsTowardAdminLimit() {
		return Check{Allowed: true}, nil
	}

	plan, err := p.plan(ctx, tenantID)
	if err != nil {
		return Check{}, err
	}

	current, err := p.repo.CountAdmins(ctx, tenantID)
	if err != nil {
		return Check{}, fmt.Errorf("count admins: %w", err)
	}

	return p.verdict("admin accounts", current, plan.MaxAdmins), nil
}

func (p *Policy) CheckDoctorLimit(ctx context.Context, tenantID uuid.UUID) (Check, error) {
	plan, err := p.plan(ctx, tenantID)
	if err != nil {
		return Check{}, err
	}

	current, err := p.repo.CountActiveDoctors(ctx, tenantID)
	if err != nil {
		return Check{}, fmt.Errorf("count doctors: %w", err)
	}

	return p.verdict("doctors", current, plan.MaxDoctors), nil
}

func (p *Policy) CheckPatientLimit(ctx context.Context, tenantID uuid.UUID) (Check, error) {
	plan, err := p.plan(ctx, tenantID)
	if err != nil {
		return Check{}, err
	}

	current, err := p.repo.CountActivePatients(ctx, tenantID)
	if err != nil {
		return Check{}, fmt.Errorf("count patients: %w", err)
	}

	return p.verdict("patients", current, plan.MaxPatients), nil
}

func (p *Policy) verdict(resource string, current, limit int) Check {
	if current >= limit {
		return Check{
			Allowed: false,
			Current: current,
			Limit:   limit,
			Message: fmt.Sprintf("plan allows at most %d %s, %d already active", limit, resource, current),
		}
	}
	return Check{Allowed: true, Current: current, Limit: limit}
}
