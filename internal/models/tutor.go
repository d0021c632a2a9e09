package models

import "time"

type TutorProfile struct {
	UserID             int64     `json:"user_id"`
	DisplayName        string    `json:"display_name"`
	Bio                *string   `json:"bio,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TutorRate is a tutor's published token price for one session type. Rates
// are read at booking time; later changes never touch existing sessions.
type TutorRate struct {
	TutorID     int64  `json:"tutor_id"`
	SessionType string `json:"session_type"`
	PriceTokens int64  `json:"price_tokens"`
}
