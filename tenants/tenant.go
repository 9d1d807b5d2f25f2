package tenants

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive    Status = "Active"
	StatusSuspended Status = "Suspended"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

type Plan string

const (
	PlanBasic        Plan = "Basic"
	PlanProfessional Plan = "Professional"
	PlanEnterprise   Plan = "Enterprise"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// ParsePlan accepts a plan name in any case. An empty string selects PlanBasic.
func ParsePlan(s string) (Plan, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PlanBasic, true
	}
	for _, p := range []Plan{PlanBasic, PlanProfessional, PlanEnterprise} {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Tenant is an isolated organization on the platform.
// AdminID references the tenant's primary administrator account.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Plan      Plan      `json:"plan"`
	Status    Status    `json:"status"`
	AdminID   string    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

func (t *Tenant) Clone() *Tenant {
	c := *t
	return &c
}

// Update is a partial tenant update; nil fields are left unchanged.
type Update struct {
	Name     *string `json:"name,omitempty"`
	Company  *string `json:"company,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Plan     *Plan   `json:"plan,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

func (u Update) Empty() bool {
	return u == Update{}
}

// Apply validates u and writes its fields onto t.
func (u Update) Apply(t *Tenant) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ErrEmptyName
	}
	if u.Plan != nil && !u.Plan.Valid() {
		return ErrInvalidPlan
	}
	if u.Status != nil && !u.Status.Valid() {
		return ErrInvalidStatus
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&t.Name, u.Name)
	set(&t.Company, u.Company)
	set(&t.Email, u.Email)
	set(&t.Phone, u.Phone)
	set(&t.Address, u.Address)
	set(&t.Industry, u.Industry)
	if u.Plan != nil {
		t.Plan = *u.Plan
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	return nil
}
