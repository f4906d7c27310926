package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/firma-api/internal/models"
)

// ErrTransitionNotAllowed is returned when the request's status forbids the event
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// Signature request events
const (
	EventSendOTP = "send_otp"
	EventSign    = "sign"
	EventReject  = "reject"
)

// signatureRequestEvents is the complete transition set. Nothing leads back to pending.
var signatureRequestEvents = fsm.Events{
	// pending → otp_sent; re-sending while otp_sent keeps the state
	{Name: EventSendOTP, Src: []string{models.SignatureStatusPending, models.SignatureStatusOTPSent}, Dst: models.SignatureStatusOTPSent},

	// otp_sent → signed
	{Name: EventSign, Src: []string{models.SignatureStatusOTPSent}, Dst: models.SignatureStatusSigned},

	// pending/otp_sent → rejected
	{Name: EventReject, Src: []string{models.SignatureStatusPending, models.SignatureStatusOTPSent}, Dst: models.SignatureStatusRejected},
}

// Sources returns the statuses an event may fire from. Repositories use it as the
// guard of the conditional status update.
func Sources(event string) []string {
	for _, e := range signatureRequestEvents {
		if e.Name == event {
			src := make([]string, len(e.Src))
			copy(src, e.Src)
			return src
		}
	}
	return nil
}

// Destination returns the status an event leads to
func Destination(event string) string {
	for _, e := range signatureRequestEvents {
		if e.Name == event {
			return e.Dst
		}
	}
	return ""
}

// SignatureRequestFSM wraps a signature request with its state machine
type SignatureRequestFSM struct {
	request *models.SignatureRequest
	fsm     *fsm.FSM
}

// NewSignatureRequestFSM creates a new signature request state machine
func NewSignatureRequestFSM(request *models.SignatureRequest) *SignatureRequestFSM {
	return &SignatureRequestFSM{
		request: request,
		fsm:     fsm.NewFSM(request.Status, signatureRequestEvents, fsm.Callbacks{}),
	}
}

// SendOTP transitions the request to otp_sent
func (s *SignatureRequestFSM) SendOTP(ctx context.Context) error {
	if !s.request.MaySendOTP() {
		return fmt.Errorf("%w: cannot send OTP in state %s", ErrTransitionNotAllowed, s.request.Status)
	}
	return s.fire(ctx, EventSendOTP)
}

// Sign transitions the request to signed. Requires a verified OTP.
func (s *SignatureRequestFSM) Sign(ctx context.Context) error {
	if !s.request.MaySign() {
		if s.request.Status == models.SignatureStatusOTPSent {
			return fmt.Errorf("%w: OTP has not been verified", ErrTransitionNotAllowed)
		}
		return fmt.Errorf("%w: cannot sign in state %s", ErrTransitionNotAllowed, s.request.Status)
	}
	return s.fire(ctx, EventSign)
}

// Reject transitions the request to rejected
func (s *SignatureRequestFSM) Reject(ctx context.Context) error {
	if !s.request.MayReject() {
		return fmt.Errorf("%w: cannot reject in state %s", ErrTransitionNotAllowed, s.request.Status)
	}
	return s.fire(ctx, EventReject)
}

func (s *SignatureRequestFSM) fire(ctx context.Context, event string) error {
	if err := s.fsm.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			return fmt.Errorf("%w: %v", ErrTransitionNotAllowed, err)
		}
	}
	s.request.Status = s.fsm.Current()
	return nil
}

// Current returns the current state
func (s *SignatureRequestFSM) Current() string {
	return s.fsm.Current()
}

// Can checks if a transition is possible
func (s *SignatureRequestFSM) Can(event string) bool {
	return s.fsm.Can(event)
}
