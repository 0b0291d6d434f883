// Package tenant resolves the tenant a request is scoped to and carries it
// through context.Context.
//
// Every item operation runs against exactly one tenant. The tenant is read
// from a request header (X-Okapi-Tenant by default, matched case-insensitively)
// and rejected when absent, blank, or equal to the shared placeholder tenant.
// Tokens holding ':' are rejected too.
package tenant

import (
	"errors"
	"net/http"
	"strings"
)

const (
	// DefaultHeader is the request header carrying the tenant token.
	DefaultHeader = "X-Okapi-Tenant"

	// DefaultShared is the placeholder tenant that must never address data.
	DefaultShared = "folio_shared"

	// BlankTenantMessage is the fixed response body for rejected tenants.
	BlankTenantMessage = "Tenant Must Be Provided"

	// InvalidTenantMessage is the response body for tenants holding a
	// reserved character.
	InvalidTenantMessage = "Tenant Contains Reserved Characters"

	// reservedChars separate the segments of tenant-scoped cache keys.
	reservedChars = ":"
)

// ErrBlankTenant is returned when the tenant is absent, empty, or the shared
// placeholder. Handlers answer it with 400 and BlankTenantMessage.
var ErrBlankTenant = errors.New("tenant must be provided")

// ErrInvalidTenant is returned for tenants containing a reserved character.
// Cache keys are laid out as item:{tenant}:{id}, so a tenant "a:b" would fall
// inside tenant "a"'s key range.
var ErrInvalidTenant = errors.New("tenant contains reserved characters")

// Resolver extracts and validates tenant tokens.
type Resolver struct {
	header string
	shared string
}

// NewResolver returns a Resolver reading header and rejecting shared.
// Empty arguments fall back to DefaultHeader and DefaultShared.
func NewResolver(header, shared string) *Resolver {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	if shared == "" {
		shared = DefaultShared
	}
	return &Resolver{header: header, shared: shared}
}

// Header returns the name of the header the resolver reads.
func (r *Resolver) Header() string {
	return r.header
}

// Resolve returns the tenant carried in h. http.Header.Get canonicalizes the
// key, so "x-okapi-tenant" and "X-OKAPI-TENANT" resolve the same way.
func (r *Resolver) Resolve(h http.Header) (string, error) {
	t := h.Get(r.header)
	if err := r.Validate(t); err != nil {
		return "", err
	}
	return t, nil
}

// Validate reports ErrBlankTenant or ErrInvalidTenant for tenants that must
// not reach storage.
func (r *Resolver) Validate(t string) error {
	if strings.TrimSpace(t) == "" || t == r.shared {
		return ErrBlankTenant
	}
	if strings.ContainsAny(t, reservedChars) {
		return ErrInvalidTenant
	}
	return nil
}

// RejectionMessage returns the plain-text body answering a Validate error.
func RejectionMessage(err error) string {
	if errors.Is(err, ErrInvalidTenant) {
		return InvalidTenantMessage
	}
	return BlankTenantMessage
}
