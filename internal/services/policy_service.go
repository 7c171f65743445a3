package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"github.com/you/ratelink/domain"
)

// Resources and actions gated by the client-side policy. The backend remains
// the authority; this gate only keeps a role from invoking calls the server
// would reject anyway.
const (
	ResourceUsers     = "users"
	ResourceRates     = "rates"
	ResourceRetailers = "retailers"

	ActionRead  = "read"
	ActionWrite = "write"
)

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *CasbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates the policy service from a real Casbin enforcer
// and seeds the role policies in memory.
func NewPolicyService(enforcer *casbin.Enforcer) (domain.PolicyService, error) {
	svc := &PolicyServiceImpl{enforcer: NewCasbinEnforcerWrapper(enforcer)}
	if err := svc.seed(); err != nil {
		return nil, fmt.Errorf("failed to seed policies: %w", err)
	}
	return svc, nil
}

// NewPolicyServiceWithEnforcer creates a policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// seed installs the role policies. Admins manage users, wholesalers publish
// rates and read their roster, retailers read rates.
func (p *PolicyServiceImpl) seed() error {
	policies := [][3]string{
		{string(domain.RoleAdmin), ResourceUsers, ActionRead},
		{string(domain.RoleAdmin), ResourceUsers, ActionWrite},
		{string(domain.RoleAdmin), ResourceRates, ActionRead},
		{string(domain.RoleWholesaler), ResourceRates, ActionRead},
		{string(domain.RoleWholesaler), ResourceRates, ActionWrite},
		{string(domain.RoleWholesaler), ResourceRetailers, ActionRead},
		{string(domain.RoleRetailer), ResourceRates, ActionRead},
	}
	for _, rule := range policies {
		if _, err := p.enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}
	return nil
}

// Allow implements domain.PolicyService
func (p *PolicyServiceImpl) Allow(role domain.Role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(string(role), resource, action)
}

// Policies implements domain.PolicyService
func (p *PolicyServiceImpl) Policies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}
