package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

type userDoc struct {
	ID                bson.ObjectID `bson:"_id,omitempty"`
	FirstName         string        `bson:"first_name"`
	LastName          string        `bson:"last_name"`
	Email             string        `bson:"email"`
	Role              string        `bson:"role"`
	PasswordHash      string        `bson:"password_hash"`
	LoginAttempts     int           `bson:"login_attempts"`
	IsBlocked         bool          `bson:"is_blocked"`
	BlockedAt         *time.Time    `bson:"blocked_at,omitempty"`
	PasswordChangedAt time.Time     `bson:"password_changed_at,omitempty"`
	CreatedAt         time.Time     `bson:"created_at"`
}

type roleDoc struct {
	ID   bson.ObjectID `bson:"_id,omitempty"`
	Name string        `bson:"name"`
}

type moduleDoc struct {
	ID   bson.ObjectID `bson:"_id,omitempty"`
	Name string        `bson:"name"`
}

// employeeDoc is the stored shape. RoleDocs and ModuleDocs are only filled
// by the lookup pipeline.
type employeeDoc struct {
	ID                bson.ObjectID   `bson:"_id,omitempty"`
	FirstName         string          `bson:"first_name"`
	LastName          string          `bson:"last_name"`
	Email             string          `bson:"email"`
	PasswordHash      string          `bson:"password_hash"`
	Position          string          `bson:"position"`
	RoleID            *bson.ObjectID  `bson:"role,omitempty"`
	Permissions       []bson.ObjectID `bson:"permissions"`
	LoginAttempts     int             `bson:"login_attempts"`
	IsBlocked         bool            `bson:"is_blocked"`
	BlockedAt         *time.Time      `bson:"blocked_at,omitempty"`
	PasswordChangedAt time.Time       `bson:"password_changed_at,omitempty"`
	CreatedAt         time.Time       `bson:"created_at"`

	RoleDocs   []roleDoc   `bson:"role_docs,omitempty"`
	ModuleDocs []moduleDoc `bson:"module_docs,omitempty"`
}

func (d userDoc) toUser() *reeutil.User {
	return &reeutil.User{
		ID:                d.ID.Hex(),
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Email:             d.Email,
		Role:              d.Role,
		PasswordHash:      d.PasswordHash,
		LoginAttempts:     d.LoginAttempts,
		IsBlocked:         d.IsBlocked,
		BlockedAt:         d.BlockedAt,
		PasswordChangedAt: d.PasswordChangedAt,
		CreatedAt:         d.CreatedAt,
	}
}

func (d employeeDoc) toEmployee() *reeutil.Employee {
	e := &reeutil.Employee{
		ID:                d.ID.Hex(),
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Position:          d.Position,
		LoginAttempts:     d.LoginAttempts,
		IsBlocked:         d.IsBlocked,
		BlockedAt:         d.BlockedAt,
		PasswordChangedAt: d.PasswordChangedAt,
		CreatedAt:         d.CreatedAt,
	}
	if len(d.RoleDocs) > 0 {
		e.Role = &reeutil.RoleRef{ID: d.RoleDocs[0].ID.Hex(), Name: d.RoleDocs[0].Name}
	}
	// Keep the stored order; modules missing from the catalog are dropped.
	names := make(map[bson.ObjectID]string, len(d.ModuleDocs))
	for _, m := range d.ModuleDocs {
		names[m.ID] = m.Name
	}
	for _, id := range d.Permissions {
		if name, ok := names[id]; ok {
			e.Permissions = append(e.Permissions, name)
		}
	}
	return e
}
