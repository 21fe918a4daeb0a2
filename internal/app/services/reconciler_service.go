package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconcilerService resolves asynchronous NETS payments exactly once, whether the
// confirmation arrives from a polling watch or from the webhook.
//
// A reference moves initiated -> polling -> confirmed | failed | timed_out. The
// terminal states live in processed_payment_references and are never rewritten.
type ReconcilerService struct {
	db               *gorm.DB
	gateway          NetsGateway
	pendingStore     *PendingPaymentStore
	referenceService *PaymentReferenceService
	checkoutService  *CheckoutService
	topUpService     *TopUpService
	metrics          *infrastructures.Metrics
	cfg              infrastructures.PaymentConfig
}

func NewReconcilerService(
	db *gorm.DB,
	gateway NetsGateway,
	pendingStore *PendingPaymentStore,
	referenceService *PaymentReferenceService,
	checkoutService *CheckoutService,
	topUpService *TopUpService,
	metrics *infrastructures.Metrics,
	cfg infrastructures.PaymentConfig,
) *ReconcilerService {
	return &ReconcilerService{
		db:               db,
		gateway:          gateway,
		pendingStore:     pendingStore,
		referenceService: referenceService,
		checkoutService:  checkoutService,
		topUpService:     topUpService,
		metrics:          metrics,
		cfg:              cfg,
	}
}

// EmitFunc delivers a progress event to the watching client. An error stops the watch.
type EmitFunc func(event models.PaymentEvent) error

func (s *ReconcilerService) Initiate(ctx context.Context, payment *models.PendingPayment) error {
	if payment.Reference == "" {
		return errors.NewGatewayError(nil, "NETS did not return a transaction reference")
	}
	return s.pendingStore.Save(ctx, payment)
}

// Watch polls the gateway until the reference resolves, the attempt budget runs out,
// or ctx is cancelled. emit receives progress only; a terminal error is the returned
// error. Cancellation stops only this watch; the reference stays
// pending and can still be resolved by the webhook or another watch.
func (s *ReconcilerService) Watch(ctx context.Context, reference string, userID uuid.UUID, emit EmitFunc) (*models.PaymentOutcome, error) {
	processed, err := s.referenceService.Find(ctx, reference)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		if processed.UserID != userID {
			return nil, errors.NewForbiddenError("This payment belongs to another user")
		}
		outcome := s.resolved(processed.Outcome(true))
		return outcome, emit(models.PaymentEvent{Type: models.PaymentEventResolved, Reference: reference, Outcome: outcome})
	}

	payment, err := s.pendingStore.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, errors.NewForbiddenError("This payment belongs to another user")
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	timedOut := false
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			logrus.WithField("reference", reference).Debug("payment watch stopped by client")
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := s.gateway.QueryStatus(ctx, reference, timedOut)
		if err != nil {
			s.metrics.ReconcilerPolls.WithLabelValues("error").Inc()
			if timedOut {
				return nil, errors.NewGatewayError(err, "Payment status unavailable. Please check again later.")
			}
			if emitErr := emit(models.PaymentEvent{Type: models.PaymentEventError, Reference: reference, Attempt: attempt, Message: err.Error()}); emitErr != nil {
				return nil, emitErr
			}
		} else {
			event := models.PaymentEvent{
				Type:         models.PaymentEventStatus,
				Reference:    reference,
				Attempt:      attempt,
				ResponseCode: status.ResponseCode,
				TxnStatus:    status.TxnStatus,
			}
			if emitErr := emit(event); emitErr != nil {
				return nil, emitErr
			}

			if status.Succeeded() {
				s.metrics.ReconcilerPolls.WithLabelValues("success").Inc()
				return s.finish(ctx, reference, emit, func(ctx context.Context) (*models.PaymentOutcome, error) {
					return s.Confirm(ctx, reference)
				})
			}

			s.metrics.ReconcilerPolls.WithLabelValues("pending").Inc()
			if timedOut {
				note := "Payment timed out (response " + status.ResponseCode + ", status " + strconv.Itoa(status.TxnStatus) + ")"
				return s.finish(ctx, reference, emit, func(ctx context.Context) (*models.PaymentOutcome, error) {
					return s.Fail(ctx, reference, models.PaymentResolutionTimedOut, note)
				})
			}
		}

		if attempt >= s.cfg.MaxPolls && !timedOut {
			timedOut = true
			if emitErr := emit(models.PaymentEvent{Type: models.PaymentEventTimeout, Reference: reference, Attempt: attempt, Message: "Timeout"}); emitErr != nil {
				return nil, emitErr
			}
		}
	}
}

// finish runs the resolution detached from the client's context so a disconnect
// cannot abort a half-written settlement. A failed resolution is returned, not
// emitted; the caller reports terminal errors once.
func (s *ReconcilerService) finish(ctx context.Context, reference string, emit EmitFunc, resolve func(context.Context) (*models.PaymentOutcome, error)) (*models.PaymentOutcome, error) {
	outcome, err := resolve(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	if ctx.Err() == nil {
		if emitErr := emit(models.PaymentEvent{Type: models.PaymentEventResolved, Reference: reference, Outcome: outcome}); emitErr != nil {
			logrus.WithError(emitErr).WithField("reference", reference).Debug("client left before resolution was delivered")
		}
	}
	return outcome, nil
}

// Confirm applies the effect of a paid reference. Concurrent and repeated calls
// replay the first outcome.
func (s *ReconcilerService) Confirm(ctx context.Context, reference string) (*models.PaymentOutcome, error) {
	processed, err := s.referenceService.Find(ctx, reference)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		return s.resolved(processed.Outcome(true)), nil
	}

	payment, err := s.pendingStore.Get(ctx, reference)
	if err != nil {
		return s.replayOr(ctx, reference, err)
	}

	var outcome *models.PaymentOutcome
	switch payment.Purpose {
	case models.PaymentPurposeCheckout:
		result, err := s.checkoutService.SettleCaptured(ctx, payment, models.PaymentRailNets)
		if err != nil {
			return nil, err
		}
		outcome = result.Outcome
	case models.PaymentPurposeWalletTopUp:
		outcome, err = s.topUpService.Settle(ctx, payment)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewInternalServerError(nil, "Unknown payment purpose")
	}

	s.forget(ctx, reference)
	return s.resolved(outcome), nil
}

// Fail records a terminal failure for a reference that never got paid.
func (s *ReconcilerService) Fail(ctx context.Context, reference string, status models.PaymentResolution, note string) (*models.PaymentOutcome, error) {
	if status == models.PaymentResolutionConfirmed {
		return nil, errors.NewBadRequestError("Fail needs a failure status")
	}

	payment, err := s.pendingStore.Get(ctx, reference)
	if err != nil {
		return s.replayOr(ctx, reference, err)
	}

	var outcome *models.PaymentOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, claim, err := s.referenceService.ClaimTx(tx, &models.ProcessedPaymentReference{
			Reference: reference,
			Provider:  payment.Provider,
			Purpose:   payment.Purpose,
			UserID:    payment.UserID,
			Status:    status,
			Amount:    payment.Amount,
			Note:      &note,
		})
		if err != nil {
			return err
		}
		outcome = claim.Outcome(!claimed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.forget(ctx, reference)
	return s.resolved(outcome), nil
}

// Resolve handles a webhook notification: query once, then confirm on success.
// A nil outcome means the payment is not settled yet and nothing was written.
func (s *ReconcilerService) Resolve(ctx context.Context, reference string) (*models.PaymentOutcome, error) {
	processed, err := s.referenceService.Find(ctx, reference)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		return s.resolved(processed.Outcome(true)), nil
	}

	status, err := s.gateway.QueryStatus(ctx, reference, false)
	if err != nil {
		s.metrics.ReconcilerPolls.WithLabelValues("error").Inc()
		return nil, err
	}
	if !status.Succeeded() {
		s.metrics.ReconcilerPolls.WithLabelValues("pending").Inc()
		return nil, nil
	}

	s.metrics.ReconcilerPolls.WithLabelValues("success").Inc()
	return s.Confirm(ctx, reference)
}

// replayOr covers a pending record that vanished because a concurrent resolver
// finished first. Without a stored resolution cause is returned.
func (s *ReconcilerService) replayOr(ctx context.Context, reference string, cause error) (*models.PaymentOutcome, error) {
	processed, err := s.referenceService.Find(ctx, reference)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		return s.resolved(processed.Outcome(true)), nil
	}
	return nil, cause
}

func (s *ReconcilerService) resolved(outcome *models.PaymentOutcome) *models.PaymentOutcome {
	s.metrics.ReconcilerResolutions.WithLabelValues(string(outcome.Status), strconv.FormatBool(outcome.Replayed)).Inc()
	return outcome
}

func (s *ReconcilerService) forget(ctx context.Context, reference string) {
	if err := s.pendingStore.Delete(ctx, reference); err != nil {
		logrus.WithError(err).WithField("reference", reference).Warn("failed to remove pending payment")
	}
}
