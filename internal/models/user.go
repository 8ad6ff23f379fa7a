package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string
type VolunteerStatus string
type DevicePlatform string

const (
	UserRoleUser      UserRole = "user"
	UserRoleVolunteer UserRole = "volunteer"
	UserRoleAdmin     UserRole = "admin"

	VolunteerStatusActive   VolunteerStatus = "active"
	VolunteerStatusInactive VolunteerStatus = "inactive"

	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformIOS     DevicePlatform = "ios"
)

type User struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Email           string             `json:"email" bson:"email"`
	Phone           string             `json:"phone" bson:"phone"`
	Role            UserRole           `json:"role" bson:"role"`
	IsVerified      bool               `json:"is_verified" bson:"is_verified"`
	IsApproved      bool               `json:"is_approved" bson:"is_approved"`
	VolunteerStatus VolunteerStatus    `json:"volunteer_status" bson:"volunteer_status"`
	Blacklisted     bool               `json:"blacklisted" bson:"blacklisted"`
	// SocketID mirrors the live websocket binding and is cleared on disconnect.
	SocketID       *string        `json:"-" bson:"socket_id,omitempty"`
	DeviceToken    string         `json:"-" bson:"device_token,omitempty"`
	DevicePlatform DevicePlatform `json:"-" bson:"device_platform,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at"`
}

// IsEligibleVolunteer reports whether the user may receive SOS fan-out.
func (u *User) IsEligibleVolunteer() bool {
	return u.Role == UserRoleVolunteer &&
		u.IsVerified &&
		u.IsApproved &&
		u.VolunteerStatus == VolunteerStatusActive &&
		!u.Blacklisted
}

func (u *User) IsVolunteer() bool { return u.Role == UserRoleVolunteer }

func (u *User) IsAdmin() bool { return u.Role == UserRoleAdmin }

// UserSummary is the public projection embedded in push payloads.
type UserSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}
