package accounts

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is an account's fixed platform role.
type Role string

const (
	RoleSuperAdmin Role = "superadmin" // Oversees every tenant, never bound to one
	RoleAdmin      Role = "admin"      // Tenant owner / administrator
	RoleHR         Role = "hr"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
)

var roleRank = map[Role]int{
	RoleSuperAdmin: 5,
	RoleAdmin:      4,
	RoleHR:         3,
	RoleManager:    2,
	RoleEmployee:   1,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles from employee (1) to superadmin (5). Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// Outranks reports whether r is strictly above other in the hierarchy.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// ParseRole converts free text to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// TenantBinding is either Unbound or Bound to a single tenant id.
// The zero value is Unbound.
type TenantBinding struct {
	tenantID string
}

func Unbound() TenantBinding {
	return TenantBinding{}
}

func Bound(tenantID string) TenantBinding {
	return TenantBinding{tenantID: tenantID}
}

// TenantID returns the bound tenant id and true, or "" and false when Unbound.
func (b TenantBinding) TenantID() (string, bool) {
	return b.tenantID, b.tenantID != ""
}

func (b TenantBinding) IsBound() bool {
	return b.tenantID != ""
}

// BoundTo reports whether the binding references tenantID.
func (b TenantBinding) BoundTo(tenantID string) bool {
	return b.tenantID != "" && b.tenantID == tenantID
}

func (b TenantBinding) MarshalJSON() ([]byte, error) {
	if !b.IsBound() {
		return []byte("null"), nil
	}
	return json.Marshal(b.tenantID)
}

func (b *TenantBinding) UnmarshalJSON(data []byte) error {
	var id *string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == nil {
		*b = Unbound()
		return nil
	}
	*b = Bound(*id)
	return nil
}

// Profile holds the prospective organization details a self-service
// registration carries until it is approved.
type Profile struct {
	OrganizationName string `json:"organization_name,omitempty"`
	Company          string `json:"company,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Address          string `json:"address,omitempty"`
	Industry         string `json:"industry,omitempty"`
}

type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"` // never serialize
	DisplayName  string        `json:"display_name,omitempty"`
	Role         Role          `json:"role"`
	Tenant       TenantBinding `json:"tenant_id"`
	IsApproved   bool          `json:"is_approved"`
	IsActive     bool          `json:"is_active"`
	LastLogin    time.Time     `json:"last_login,omitempty"`
	Profile      Profile       `json:"profile"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (a *Account) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// IsPending reports whether the account is a registration request waiting
// for approval: an unapproved admin with no tenant.
func (a *Account) IsPending() bool {
	return a.Role == RoleAdmin && !a.IsApproved && !a.Tenant.IsBound()
}

// Clone returns a copy that can be mutated without affecting a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail performs a minimal sanity check of an email address.
func ValidEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
