package models

import "github.com/golang-jwt/jwt/v5"

// ActorClaims is the JWT payload the gateway accepts. Tokens are issued by
// an external identity provider; this service only verifies and reads them.
type ActorClaims struct {
	jwt.RegisteredClaims
	CanManageRosters bool `json:"can_manage_rosters"`
}

// Actor returns the claims as an Actor value.
func (c *ActorClaims) Actor() Actor {
	return Actor{ID: c.Subject, CanManageRosters: c.CanManageRosters}
}

// Actor identifies the authenticated caller of a mutating operation. The
// permission decision is made upstream; CanManageRosters carries the result
// through to the services that must honor it.
type Actor struct {
	ID               string `json:"id"`
	CanManageRosters bool   `json:"can_manage_rosters"`
}

// IDRef returns a nullable reference for audit rows.
func (a Actor) IDRef() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
