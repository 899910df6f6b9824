package auth

import "context"

// RoleSet is a whitelist of roles allowed to perform an operation. An empty
// set means any authenticated principal qualifies.
type RoleSet map[Role]struct{}

// Roles builds a RoleSet from its arguments.
func Roles(rs ...Role) RoleSet {
	set := make(RoleSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

// Authorize returns the principal from the context when it holds one of the
// allowed roles. A missing principal is ErrUnauthenticated; a present
// principal with the wrong role is ErrForbidden. The two never blur: the
// caller's HTTP layer maps them to 401 and 403 respectively.
func Authorize(ctx context.Context, allowed RoleSet) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	if len(allowed) == 0 {
		return p, nil
	}
	if _, ok := allowed[p.Role]; !ok {
		return Principal{}, ErrForbidden
	}
	return p, nil
}
