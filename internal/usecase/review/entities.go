package review

type ReviewInput struct {
	Decision        string `json:"status" validate:"required,oneof=approved rejected pending_documents"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
	RejectionReason string `json:"rejection_reason" validate:"omitempty,max=2000"`
}

type VerifyInput struct {
	Verified bool   `json:"verified"`
	Notes    string `json:"notes" validate:"omitempty,max=2000"`
}
