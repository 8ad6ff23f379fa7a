package utils

import "time"

const (
	AppName    = "RescueLink"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Notifications
	NotificationListLimit = 50
	MessagePreviewLength  = 50
	UnreadCountCacheTTL   = 5 * time.Minute
	UnreadGenerationTTL   = 24 * time.Hour

	// Chat
	MaxMessageLength = 2000

	// SOS
	MaxSOSMessageLength  = 1000
	VolunteerLocationTTL = 2 * time.Hour
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken     = "invalid token"
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
)

// Cache Keys
const (
	CacheUnreadCountPrefix      = "notifications:unread:"
	CacheUnreadGenerationPrefix = "notifications:unread-gen:"
	CacheResponderGeoPrefix     = "sos:responders:"
	CacheSweepLockKey           = "sos:reminder-sweep:lock"
)

const (
	EarthRadiusKM = 6371.0
)
