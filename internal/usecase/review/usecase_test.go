package review_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"
	"kyc-backend/internal/testutil/kyctest"
	"kyc-backend/internal/usecase/review"
)

func lastAction(t *testing.T, h *kyctest.Harness, id string) appDomain.Action {
	t.Helper()
	a := h.Application(t, id)
	return a.Timeline[len(a.Timeline)-1].Action
}

// submitted application rejected with a reason
func TestScenario_Reject(t *testing.T) {
	h := kyctest.New(t)
	sub := h.Submitted(t, kyctest.Owner)

	out, err := h.Reviews.Review(context.Background(), kyctest.Admin, sub.ApplicationID, review.ReviewInput{
		Decision:        "rejected",
		RejectionReason: "blurry ID",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if out.Status != "rejected" || out.Review.RejectionReason != "blurry ID" || out.Review.ReviewedBy != kyctest.AdminID {
		t.Fatalf("review not recorded: %s %+v", out.Status, out.Review)
	}
	if got := h.KYCStatus(t, kyctest.OwnerID); got != userDomain.KYCRejected {
		t.Fatalf("mirror=%s", got)
	}
	if got := lastAction(t, h, sub.ApplicationID); got != appDomain.ActionRejected {
		t.Fatalf("last action=%s", got)
	}
	if n := len(h.Application(t, sub.ApplicationID).Timeline); n != len(sub.Timeline)+1 {
		t.Fatalf("timeline=%d want %d", n, len(sub.Timeline)+1)
	}
}

func TestReview_RejectRequiresReason(t *testing.T) {
	h := kyctest.New(t)
	sub := h.Submitted(t, kyctest.Owner)

	_, err := h.Reviews.Review(context.Background(), kyctest.Admin, sub.ApplicationID, review.ReviewInput{Decision: "rejected", RejectionReason: "   "})
	if !errors.Is(err, appDomain.ErrMissingRejectionReason) {
		t.Fatalf("want ErrMissingRejectionReason, got %v", err)
	}
	if st := h.Application(t, sub.ApplicationID).Status; st != appDomain.StatusSubmitted {
		t.Fatalf("status changed to %s", st)
	}
}

func TestReview_ApproveStampsCertificate(t *testing.T) {
	h := kyctest.New(t)
	sub := h.Submitted(t, kyctest.Owner)
	ctx := context.Background()

	if _, err := h.Reviews.BeginReview(ctx, kyctest.Moderator, sub.ApplicationID); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}
	if got := lastAction(t, h, sub.ApplicationID); got != appDomain.ActionUnderReview {
		t.Fatalf("last action=%s", got)
	}
	if got := h.KYCStatus(t, kyctest.OwnerID); got != userDomain.KYCSubmitted {
		t.Fatalf("mirror under review=%s", got)
	}

	out, err := h.Reviews.Review(ctx, kyctest.Admin, sub.ApplicationID, review.ReviewInput{Decision: "approved", Notes: "ok"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	want := appDomain.CertificateRef(kyctest.CertBase, sub.ApplicationNumber)
	if out.Status != "approved" || out.Review.CertificateRef != want || out.Review.ApprovedAt == nil {
		t.Fatalf("approval not recorded: %+v", out.Review)
	}
	if got := h.KYCStatus(t, kyctest.OwnerID); got != userDomain.KYCApproved {
		t.Fatalf("mirror=%s", got)
	}

	// approved is terminal
	_, err = h.Reviews.Review(ctx, kyctest.Admin, sub.ApplicationID, review.ReviewInput{Decision: "pending_documents"})
	if !errors.Is(err, appDomain.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
	if st, _ := appDomain.CurrentStatus(err); st != appDomain.StatusApproved {
		t.Fatalf("error should carry approved, got %q", st)
	}
}

func TestReview_RequestDocumentsThenResubmit(t *testing.T) {
	h := kyctest.New(t)
	sub := h.Submitted(t, kyctest.Owner)
	ctx := context.Background()

	out, err := h.Reviews.Review(ctx, kyctest.Moderator, sub.ApplicationID, review.ReviewInput{Decision: "pending_documents", Notes: "address proof expired"})
	if err != nil {
		t.Fatalf("request documents: %v", err)
	}
	if out.Status != "pending_documents" {
		t.Fatalf("status=%s", out.Status)
	}
	if got := h.KYCStatus(t, kyctest.OwnerID); got != userDomain.KYCPending {
		t.Fatalf("mirror=%s", got)
	}

	h.Upload(t, kyctest.Owner, sub.ApplicationID, appDomain.SlotAddressProof)
	again, err := h.Applications.Submit(ctx, kyctest.Owner, sub.ApplicationID)
	if err != nil || again.Status != "submitted" {
		t.Fatalf("resubmit: %+v %v", again, err)
	}
	if got := h.KYCStatus(t, kyctest.OwnerID); got != userDomain.KYCSubmitted {
		t.Fatalf("mirror=%s", got)
	}
	kinds := h.Sink.EventKinds()
	want := []appDomain.EventKind{appDomain.EventSubmitted, appDomain.EventDocumentsRequested, appDomain.EventSubmitted}
	if len(kinds) != len(want) {
		t.Fatalf("events=%v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events=%v", kinds)
		}
	}
}

func TestReview_Guards(t *testing.T) {
	h := kyctest.New(t)
	ctx := context.Background()
	sub := h.Submitted(t, kyctest.Owner)

	tests := []struct {
		name     string
		reviewer userDomain.Actor
		in       review.ReviewInput
		wantErr  error
	}{
		{"applicant cannot review", kyctest.Owner, review.ReviewInput{Decision: "approved"}, appDomain.ErrForbidden},
		{"unknown decision", kyctest.Admin, review.ReviewInput{Decision: "maybe"}, appDomain.ErrInvalidDecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Reviews.Review(ctx, tt.reviewer, sub.ApplicationID, tt.in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("draft cannot be reviewed", func(t *testing.T) {
		draft, err := h.Applications.Create(ctx, kyctest.Other, appUsecaseFields())
		if err != nil {
			t.Fatal(err)
		}
		_, err = h.Reviews.Review(ctx, kyctest.Admin, draft.ApplicationID, review.ReviewInput{Decision: "approved"})
		if st, ok := appDomain.CurrentStatus(err); !errors.Is(err, appDomain.ErrInvalidTransition) || !ok || st != appDomain.StatusDraft {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := h.Reviews.BeginReview(ctx, kyctest.Admin, "ffffffffffffffffffffffffffffffff")
		if !errors.Is(err, appDomain.ErrNotFound) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestVerifyDocument(t *testing.T) {
	h := kyctest.New(t)
	ctx := context.Background()
	sub := h.Submitted(t, kyctest.Owner)

	out, err := h.Reviews.VerifyDocument(ctx, kyctest.Admin, sub.ApplicationID, "identity", review.VerifyInput{Verified: true, Notes: "matches selfie"})
	if err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	doc := out.Documents["identity"]
	if !doc.Verified || doc.VerificationNotes != "matches selfie" {
		t.Fatalf("doc=%+v", doc)
	}
	if got := lastAction(t, h, sub.ApplicationID); got != appDomain.ActionDocumentVerified {
		t.Fatalf("last action=%s", got)
	}

	if _, err := h.Reviews.VerifyDocument(ctx, kyctest.Admin, sub.ApplicationID, "profile_image", review.VerifyInput{Verified: true}); !errors.Is(err, appDomain.ErrInvalidSlot) {
		t.Fatalf("profile image: %v", err)
	}
	if _, err := h.Reviews.VerifyDocument(ctx, kyctest.Owner, sub.ApplicationID, "identity", review.VerifyInput{Verified: true}); !errors.Is(err, appDomain.ErrForbidden) {
		t.Fatalf("applicant: %v", err)
	}
}

// two reviewers deciding at once: the row lock lets exactly one through
func TestReview_ConcurrentDecisionsSerialize(t *testing.T) {
	for round := 0; round < 10; round++ {
		h := kyctest.New(t)
		ctx := context.Background()
		sub := h.Submitted(t, kyctest.Owner)
		before := len(h.Application(t, sub.ApplicationID).Timeline)

		inputs := []review.ReviewInput{
			{Decision: "approved", Notes: "ok"},
			{Decision: "rejected", RejectionReason: "blurry ID"},
		}
		reviewers := []userDomain.Actor{kyctest.Admin, kyctest.Moderator}
		errs := make([]error, len(inputs))
		var wg sync.WaitGroup
		for i := range inputs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = h.Reviews.Review(ctx, reviewers[i], sub.ApplicationID, inputs[i])
			}(i)
		}
		wg.Wait()

		winner, loser := -1, -1
		for i, err := range errs {
			if err == nil {
				winner = i
			} else {
				loser = i
			}
		}
		if winner < 0 || loser < 0 {
			t.Fatalf("round %d: want one winner, got errs=%v", round, errs)
		}

		want := appDomain.StatusApproved
		if inputs[winner].Decision == "rejected" {
			want = appDomain.StatusRejected
		}
		if !errors.Is(errs[loser], appDomain.ErrInvalidTransition) {
			t.Fatalf("round %d: loser err=%v", round, errs[loser])
		}
		if st, ok := appDomain.CurrentStatus(errs[loser]); !ok || st != want {
			t.Fatalf("round %d: loser saw %s, winner left %s", round, st, want)
		}
		a := h.Application(t, sub.ApplicationID)
		if a.Status != want || len(a.Timeline) != before+1 {
			t.Fatalf("round %d: status=%s timeline %d -> %d", round, a.Status, before, len(a.Timeline))
		}
		if got := h.KYCStatus(t, kyctest.OwnerID); got != appDomain.MirrorStatus(want) {
			t.Fatalf("round %d: mirror=%s", round, got)
		}
	}
}
