package review

import (
	"context"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"
	appUsecase "kyc-backend/internal/usecase/application"
)

type Usecase struct {
	tr *appUsecase.Transitioner
	// certificates are published under this base
	certBaseURL string
}

func NewUsecase(tr *appUsecase.Transitioner, certBaseURL string) *Usecase {
	return &Usecase{tr: tr, certBaseURL: certBaseURL}
}

func (u *Usecase) BeginReview(ctx context.Context, reviewer userDomain.Actor, applicationID string) (*appUsecase.ApplicationDTO, error) {
	if !reviewer.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	a, err := u.tr.Apply(ctx, applicationID, "begin_review", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.BeginReview(reviewer, at)
	})
	if err != nil {
		return nil, err
	}
	return appUsecase.ToDTO(a), nil
}

// Review records approve, reject or request-documents.
func (u *Usecase) Review(ctx context.Context, reviewer userDomain.Actor, applicationID string, in ReviewInput) (*appUsecase.ApplicationDTO, error) {
	if !reviewer.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	decision, err := appDomain.ParseDecision(in.Decision)
	if err != nil {
		return nil, err
	}
	a, err := u.tr.Apply(ctx, applicationID, "review_"+string(decision), func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		ri := appDomain.ReviewInput{
			Decision:        decision,
			Notes:           in.Notes,
			RejectionReason: in.RejectionReason,
		}
		if decision == appDomain.DecisionApprove {
			ri.CertificateRef = appDomain.CertificateRef(u.certBaseURL, a.ApplicationNumber)
		}
		return a.Decide(reviewer, ri, at)
	})
	if err != nil {
		return nil, err
	}
	return appUsecase.ToDTO(a), nil
}

func (u *Usecase) VerifyDocument(ctx context.Context, reviewer userDomain.Actor, applicationID, slot string, in VerifyInput) (*appUsecase.ApplicationDTO, error) {
	if !reviewer.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	s, err := appDomain.ParseSlot(slot)
	if err != nil {
		return nil, err
	}
	a, err := u.tr.Apply(ctx, applicationID, "verify_document", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.VerifyDocument(reviewer, s, in.Verified, in.Notes, at)
	})
	if err != nil {
		return nil, err
	}
	return appUsecase.ToDTO(a), nil
}
