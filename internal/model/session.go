package model

type Session struct {
	UserID     int64  `json:"user_id"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
}
