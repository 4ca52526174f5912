package dto

// EnrollRequest registers a brand-new guest. The encoding comes from
// the external extractor; the API never infers intent, the operator
// chose "new enrollment" explicitly.
type EnrollRequest struct {
	Name     string    `json:"name" binding:"required"`
	Phone    string    `json:"phone"`
	Encoding []float32 `json:"encoding" binding:"required"`
}

// CheckInRequest re-checks-in a known, departed guest. Name and phone
// overwrite the stored profile (the operator confirms or edits them).
type CheckInRequest struct {
	Name     string    `json:"name" binding:"required"`
	Phone    string    `json:"phone"`
	Encoding []float32 `json:"encoding" binding:"required"`
}

// MatchRequest asks which guest, if any, a probe corresponds to.
// Scope is "all" (default, check-in flows) or "present" (check-out).
type MatchRequest struct {
	Encoding []float32 `json:"encoding" binding:"required"`
	Scope    string    `json:"scope"`
}

// CheckOutByFaceRequest checks out whichever present guest the probe
// matches.
type CheckOutByFaceRequest struct {
	Encoding []float32 `json:"encoding" binding:"required"`
}

type GuestResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Status       string  `json:"status"`
	CheckinTime  string  `json:"checkin_time"`
	CheckoutTime *string `json:"checkout_time,omitempty"`
	PhotoURL     string  `json:"photo_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type GuestListResponse struct {
	Guests []GuestResponse `json:"guests"`
	Total  int             `json:"total"`
}

type MatchResponse struct {
	Matched bool           `json:"matched"`
	Guest   *GuestResponse `json:"guest,omitempty"`
}
