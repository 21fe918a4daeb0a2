package deliveries

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetricsRoutes(t *testing.T) {
	metrics := infrastructures.NewMetrics()
	metrics.Settlements.WithLabelValues("wallet", "success").Inc()

	app := fiber.New()
	NewHealthHandler(metrics).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gsalt_checkout_settlements_total{rail="wallet",result="success"} 1`)
}

func TestWriteEventFramesServerSentEvents(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := writeEvent(w, "status", models.PaymentEvent{
		Type:         models.PaymentEventStatus,
		Reference:    "REF-1",
		Attempt:      2,
		ResponseCode: "09",
	})
	require.NoError(t, err)

	frame := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("event: status\ndata: {")), frame)
	assert.Contains(t, frame, `"reference":"REF-1"`)
	assert.Contains(t, frame, `"attempt":2`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("}\n\n")), frame)
}

type recordingWatcher struct {
	mu         sync.Mutex
	references []string
	fail       error
}

func (w *recordingWatcher) Watch(ctx context.Context, reference string, userID uuid.UUID, emit services.EmitFunc) (*models.PaymentOutcome, error) {
	w.mu.Lock()
	w.references = append(w.references, reference)
	w.mu.Unlock()

	if err := emit(models.PaymentEvent{Type: models.PaymentEventStatus, Reference: reference, Attempt: 1}); err != nil {
		return nil, err
	}
	if w.fail != nil {
		return nil, w.fail
	}
	outcome := &models.PaymentOutcome{Reference: reference, Status: models.PaymentResolutionConfirmed}
	return outcome, emit(models.PaymentEvent{Type: models.PaymentEventResolved, Reference: reference, Outcome: outcome})
}

func streamApp(watcher PaymentWatcher) *fiber.App {
	handler := &CheckoutHandler{watcher: watcher}
	user := &models.ConnectUser{ID: uuid.New(), GlobalRole: models.ConnectUserRoleUser}

	app := fiber.New()
	app.Get("/checkout/nets/:ref/stream", func(c *fiber.Ctx) error {
		c.Locals("connect_user", user)
		return c.Next()
	}, handler.StreamNets)
	return app
}

func stream(t *testing.T, app *fiber.App, reference string) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/checkout/nets/"+reference+"/stream", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestStreamNetsKeepsReferenceAfterRequest(t *testing.T) {
	watcher := &recordingWatcher{}
	app := streamApp(watcher)

	first := stream(t, app, "REF-AAAA")
	second := stream(t, app, "REF-BBBB")

	assert.Contains(t, first, "event: resolved\n")
	assert.Contains(t, second, `"reference":"REF-BBBB"`)
	assert.Equal(t, []string{"REF-AAAA", "REF-BBBB"}, watcher.references,
		"a later request must not rewrite the reference an earlier stream holds")
}

func TestStreamNetsWritesTerminalErrorOnce(t *testing.T) {
	watcher := &recordingWatcher{fail: errors.NewGatewayError(io.ErrUnexpectedEOF, "Payment status unavailable. Please check again later.")}

	body := stream(t, streamApp(watcher), "REF-1")

	assert.Equal(t, 1, strings.Count(body, "event: error\n"), body)
	assert.Contains(t, body, `"code":"`+errors.CodeGatewayFailure+`"`)
	assert.Contains(t, body, "Payment status unavailable")
}
