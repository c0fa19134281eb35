package sockets

import (
	"context"
	"fmt"
	"strings"
)

// Role is a user permission level; higher values include lower ones.
type Role int

const (
	RoleNone Role = iota
	RolePlayer
	RoleTrusted
	RoleAssistant
	RoleGamemaster
)

var roleNames = map[Role]string{
	RoleNone:       "NONE",
	RolePlayer:     "PLAYER",
	RoleTrusted:    "TRUSTED",
	RoleAssistant:  "ASSISTANT",
	RoleGamemaster: "GAMEMASTER",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// User is the actor on whose behalf an operation runs.
type User struct {
	ID   string
	Role Role
}

type Authorizer interface {
	Allowed(ctx context.Context, user User, min Role) bool
}

// RoleAuthorizer allows users whose role meets the minimum.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Allowed(_ context.Context, user User, min Role) bool {
	return user.Role >= min
}
