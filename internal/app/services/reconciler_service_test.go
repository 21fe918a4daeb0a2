package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	events []models.PaymentEvent
}

func (l *eventLog) emit(event models.PaymentEvent) error {
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []models.PaymentEventType {
	types := make([]models.PaymentEventType, 0, len(l.events))
	for _, event := range l.events {
		types = append(types, event.Type)
	}
	return types
}

// startNetsCheckout puts a $20 cart in place and opens a NETS challenge for it.
func startNetsCheckout(t *testing.T, env *testEnv, user uuid.UUID) string {
	t.Helper()
	env.addToCart(t, user, env.seedProduct(t, "12", 5), 1)
	challenge, err := env.nets.StartCheckout(context.Background(), user, nil)
	require.NoError(t, err)
	assert.Equal(t, "20.00", challenge.Amount.StringFixed(2))
	return challenge.Reference
}

func TestWatchConfirmsPaidCheckout(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	env.netsGateway.script(pendingReply(), pendingReply(), paidReply())

	log := &eventLog{}
	outcome, err := env.reconciler.Watch(context.Background(), reference, user, log.emit)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentResolutionConfirmed, outcome.Status)
	require.NotNil(t, outcome.ReceiptID)
	assert.Equal(t, []models.PaymentEventType{
		models.PaymentEventStatus, models.PaymentEventStatus, models.PaymentEventStatus, models.PaymentEventResolved,
	}, log.types())
	assert.Equal(t, int64(1), env.count(t, &models.Receipt{}, "id = ? AND payment_method = ?", *outcome.ReceiptID, models.PaymentRailNets))

	_, err = env.pending.Get(context.Background(), reference)
	assert.Equal(t, 404, errors.StatusOf(err))
}

func TestWatchReplaysResolvedReference(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	env.netsGateway.script(paidReply())

	first, err := env.reconciler.Resolve(context.Background(), reference)
	require.NoError(t, err)

	log := &eventLog{}
	again, err := env.reconciler.Watch(context.Background(), reference, user, log.emit)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.ReceiptID, again.ReceiptID)
	assert.Equal(t, []models.PaymentEventType{models.PaymentEventResolved}, log.types())

	resolutions := env.metrics.ReconcilerResolutions
	assert.Equal(t, float64(1), testutil.ToFloat64(resolutions.WithLabelValues(string(models.PaymentResolutionConfirmed), "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(resolutions.WithLabelValues(string(models.PaymentResolutionConfirmed), "true")))

	_, err = env.reconciler.Watch(context.Background(), reference, uuid.New(), log.emit)
	assert.Equal(t, 403, errors.StatusOf(err))
}

func TestConcurrentConfirmsMaterializeOnce(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)

	outcomes := make([]*models.PaymentOutcome, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = env.reconciler.Confirm(context.Background(), reference)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotNil(t, outcomes[0].ReceiptID)
	require.NotNil(t, outcomes[1].ReceiptID)
	assert.Equal(t, *outcomes[0].ReceiptID, *outcomes[1].ReceiptID)
	assert.True(t, outcomes[0].Replayed != outcomes[1].Replayed, "exactly one confirm does the work")
	assert.Equal(t, int64(1), env.count(t, &models.Receipt{}, "user_id = ?", user))
	assert.True(t, env.balance(t, user).IsZero(), "a replayed confirm never compensates into the wallet")
}

func TestConcurrentTopUpConfirmsCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	challenge, err := env.nets.StartTopUp(context.Background(), user, money("25"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.reconciler.Confirm(context.Background(), challenge.Reference)
		}()
	}
	wg.Wait()

	assert.Equal(t, "25.00", env.balance(t, user).StringFixed(2))
	assert.Equal(t, int64(1), env.count(t, &models.WalletLedgerEntry{}, "user_id = ? AND reference_type = ?", user, "wallet_topup_nets"))
}

func TestWatchTimesOutAfterPollBudget(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	env.netsGateway.script(pendingReply())

	log := &eventLog{}
	outcome, err := env.reconciler.Watch(context.Background(), reference, user, log.emit)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentResolutionTimedOut, outcome.Status)
	assert.Nil(t, outcome.ReceiptID)
	assert.Equal(t, []bool{false, false, false, true}, env.netsGateway.timedOut)
	assert.Equal(t, []models.PaymentEventType{
		models.PaymentEventStatus, models.PaymentEventStatus, models.PaymentEventStatus,
		models.PaymentEventTimeout,
		models.PaymentEventStatus, models.PaymentEventResolved,
	}, log.types())
	assert.Equal(t, int64(0), env.count(t, &models.Receipt{}, "user_id = ?", user))

	lines, err := env.cart.GetLines(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestWatchGatewayErrorAfterTimeoutIsExternalFailure(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	broken := netsReply{err: fmt.Errorf("connection reset")}
	env.netsGateway.script(broken, pendingReply(), pendingReply(), broken)

	log := &eventLog{}
	_, err := env.reconciler.Watch(context.Background(), reference, user, log.emit)

	require.Error(t, err)
	assert.Equal(t, 502, errors.StatusOf(err))
	assert.Equal(t, []models.PaymentEventType{
		models.PaymentEventError,
		models.PaymentEventStatus,
		models.PaymentEventStatus,
		models.PaymentEventTimeout,
	}, log.types(), "the terminal failure is returned, not emitted")

	processed, err := env.references.Find(context.Background(), reference)
	require.NoError(t, err)
	assert.Nil(t, processed, "an unknown outcome is left for the webhook")
}

func TestWatchStopsWhenClientLeaves(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	env.reconciler.cfg.PollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := env.reconciler.Watch(ctx, reference, user, (&eventLog{}).emit)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, env.netsGateway.queries)

	payment, err := env.pending.Get(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, user, payment.UserID)
}

func TestWatchStopsOnEmitError(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)
	gone := fmt.Errorf("stream closed")

	_, err := env.reconciler.Watch(context.Background(), reference, user, func(models.PaymentEvent) error { return gone })

	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, env.netsGateway.queries)
}

func TestResolveFromWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)

	env.netsGateway.script(pendingReply())
	outcome, err := env.reconciler.Resolve(ctx, reference)
	require.NoError(t, err)
	assert.Nil(t, outcome)

	env.netsGateway.script(paidReply())
	outcome, err = env.reconciler.Resolve(ctx, reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentResolutionConfirmed, outcome.Status)
	assert.False(t, outcome.Replayed)

	again, err := env.reconciler.Resolve(ctx, reference)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, int64(1), env.count(t, &models.Receipt{}, "user_id = ?", user))
}

func TestFailRecordsTerminalStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := uuid.New()
	reference := startNetsCheckout(t, env, user)

	outcome, err := env.reconciler.Fail(ctx, reference, models.PaymentResolutionFailed, "Declined")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentResolutionFailed, outcome.Status)

	confirmed, err := env.reconciler.Confirm(ctx, reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentResolutionFailed, confirmed.Status, "a terminal state is never rewritten")
	assert.True(t, confirmed.Replayed)

	_, err = env.reconciler.Fail(ctx, reference, models.PaymentResolutionConfirmed, "")
	assert.Equal(t, 400, errors.StatusOf(err))
}

func TestStartCheckoutRejectsFailedChallenge(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	env.addToCart(t, user, env.seedProduct(t, "12", 5), 1)
	env.netsGateway.qr = &models.NetsQRData{ResponseCode: "68", TxnStatus: models.NetsTxnStatusFailed, ErrorMessage: "Merchant suspended"}

	_, err := env.nets.StartCheckout(context.Background(), user, nil)

	require.Error(t, err)
	assert.Equal(t, 502, errors.StatusOf(err))
	assert.Equal(t, "Merchant suspended", err.Error())
}
