package application_test

import "kyc-backend/internal/usecase/review"

func reviewReject(reason string) review.ReviewInput {
	return review.ReviewInput{Decision: "rejected", RejectionReason: reason}
}

func reviewApprove() review.ReviewInput {
	return review.ReviewInput{Decision: "approved", Notes: "all good"}
}
