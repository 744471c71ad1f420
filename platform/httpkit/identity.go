// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated agent's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access agent information without depending on Gin.
type Identity interface {
	// AgentID returns the authenticated agent's ID.
	AgentID() uuid.UUID
	// Roles returns the agent's assigned roles.
	Roles() []string
	// HasRole checks if the agent has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the agent is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	agentID       uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) AgentID() uuid.UUID {
	return i.agentID
}

func (i *identity) Roles() []string {
	return i.roles
}

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if agent info is not present.
func GetIdentity(c *gin.Context) Identity {
	agentID, agentOK := c.Get(ContextAgentIDKey)
	roles, rolesOK := c.Get(ContextRolesKey)

	if !agentOK {
		return &identity{authenticated: false}
	}

	id, ok := agentID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleList []string
	if rolesOK {
		roleList, _ = roles.([]string)
	}

	return &identity{
		agentID:       id,
		roles:         roleList,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context and aborts with
// 401 when the request is unauthenticated. Returns nil after aborting.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return nil
	}
	return id
}
