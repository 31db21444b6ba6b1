package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olmedhq/erp-gateway/internal/domain"
)

// maxBodyCapture bounds how much of a response body is kept in the
// job's bookkeeping and logs.
const maxBodyCapture = 2048

// TokenSource yields the shared ERP credential, refreshing it when
// near expiry.
type TokenSource interface {
	EnsureFresh(ctx context.Context) (domain.TokenInfo, error)
}

// Executor turns a request template into exactly one outbound HTTP
// call and records the outcome. It is shared by the scheduler loop and
// the ad-hoc execution endpoint.
type Executor struct {
	client  *http.Client
	tokens  TokenSource
	erpHost string
	timeout time.Duration
	logger  *slog.Logger
}

func NewExecutor(tokens TokenSource, erpHost string, timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		client:  &http.Client{}, // per-call timeout via context below
		tokens:  tokens,
		erpHost: erpHost,
		timeout: timeout,
		logger:  logger.With("component", "executor"),
	}
}

// Execute sends the template verbatim: all headers except Content-Type
// are copied as-is, the body (and its Content-Type) is attached only
// for methods that conventionally carry one, and the shared bearer
// token is injected when the template opts in and targets the ERP
// host. A missing or unrefreshable token downgrades to an
// unauthenticated call; the upstream 401 then surfaces as an ordinary
// failed outcome.
func (e *Executor) Execute(ctx context.Context, tmpl domain.RequestTemplate) domain.ExecutionOutcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var bodyReader io.Reader
	attachBody := carriesBody(tmpl.Method) && tmpl.Body != ""
	if attachBody {
		bodyReader = strings.NewReader(tmpl.Body)
	}

	req, err := http.NewRequestWithContext(ctx, tmpl.Method, tmpl.URL, bodyReader)
	if err != nil {
		return failedOutcome(fmt.Errorf("build request: %w", err), start)
	}

	contentType := ""
	for k, v := range tmpl.Headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			contentType = v
			continue
		}
		req.Header.Set(k, v)
	}
	if attachBody {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	if tmpl.UseSharedAuth && e.targetsERP(tmpl.URL) {
		tok, err := e.tokens.EnsureFresh(ctx)
		if err != nil {
			e.logger.Warn("no shared token available, sending unauthenticated", "url", tmpl.URL, "error", err)
		} else {
			req.Header.Set("Authorization", "Bearer "+tok.Token)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return failedOutcome(fmt.Errorf("do request: %w", err), start)
	}
	defer func() { _ = resp.Body.Close() }()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyCapture))
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused by the pool

	outcome := domain.ExecutionOutcome{
		ExecutionID:  uuid.NewString(),
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:   resp.StatusCode,
		ResponseBody: string(captured),
		Duration:     time.Since(start),
		ExecutedAt:   start.UTC(),
	}
	if !outcome.Success {
		msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		outcome.Error = &msg
	}
	return outcome
}

func (e *Executor) targetsERP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), e.erpHost)
}

func carriesBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func failedOutcome(err error, start time.Time) domain.ExecutionOutcome {
	msg := err.Error()
	return domain.ExecutionOutcome{
		ExecutionID: uuid.NewString(),
		Success:     false,
		Error:       &msg,
		Duration:    time.Since(start),
		ExecutedAt:  start.UTC(),
	}
}
