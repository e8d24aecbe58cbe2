package model

import (
	"time"
)

// AgentRoleCentralFarmer is the app_user role that works the outbound-call board.
const AgentRoleCentralFarmer = "central_farmer"

// Agent represents an app user that partners can be mapped to. Maintained by
// the authentication collaborator; read-only for this service.
type Agent struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	Name      string    `json:"name" gorm:"column:name"`
	Email     string    `json:"email" gorm:"column:email;uniqueIndex"`
	Role      string    `json:"role" gorm:"column:role;index"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Agent) TableName() string {
	return "app_users"
}
