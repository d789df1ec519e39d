package proposalupdate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v3"
)

// httpFacade is the real Facade, a thin client that sends every mode as
// a PATCH to the persistence facade's /proposals endpoint. Retries transient failures with
// cenkalti/backoff, matching the original's max_retries/retry_delay/
// backoff_factor settings.
type httpFacade struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	backoffMult float64
}

func NewHTTPFacade(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration, backoffMult float64) Facade {
	return &httpFacade{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		backoffMult: backoffMult,
	}
}

// Apply issues the HTTP call for req.Mode against the persistence
// facade, retrying transient (5xx/transport) failures.
func (f *httpFacade) Apply(ctx context.Context, req Request, followUpID string) error {
	body := map[string]any{
		"mode":               string(req.Mode),
		"order_req_id":       req.OrderID,
		"proposal_id":        req.ProposalID,
		"audience":           req.Audience,
		"content":            req.Content,
		"follow_up_id":       followUpID,
		"order_follow_up_id": req.OrderFollowUpID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.retryDelay
	bo.Multiplier = f.backoffMult
	bounded := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(f.maxRetries))

	return backoff.Retry(func() error {
		return f.doOnce(ctx, payload)
	}, bounded)
}

func (f *httpFacade) doOnce(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, f.baseURL+"/proposals", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("persistence facade transient status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("persistence facade rejected request: status %d", resp.StatusCode))
	}
	return nil
}
