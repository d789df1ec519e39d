package sellerselect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// httpResolver is the real PersistenceResolver: a thin REST client over
// the persistence facade, in the same request-shape style as
// proposalupdate's httpFacade.
type httpResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) PersistenceResolver {
	return &httpResolver{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (r *httpResolver) ResolveOrderLocation(ctx context.Context, orderID string) (OrderLocation, error) {
	var loc OrderLocation
	if err := r.getJSON(ctx, "/orders/"+url.PathEscape(orderID)+"/location", &loc); err != nil {
		return OrderLocation{}, err
	}
	return loc, nil
}

func (r *httpResolver) CandidateSellers(ctx context.Context, industry string) ([]string, error) {
	var sellers []string
	if err := r.getJSON(ctx, "/sellers?industry="+url.QueryEscape(industry), &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}

func (r *httpResolver) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("persistence facade returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// httpOracle is the real DistanceOracle, a thin REST client over the
// distance-oracle service.
type httpOracle struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDistanceOracle(baseURL string, timeout time.Duration) DistanceOracle {
	return &httpOracle{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (o *httpOracle) Distance(ctx context.Context, sellerID string, loc OrderLocation) (float64, error) {
	q := url.Values{}
	q.Set("seller_id", sellerID)
	q.Set("lat", fmt.Sprintf("%f", loc.Lat))
	q.Set("lon", fmt.Sprintf("%f", loc.Lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/distance?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("distance oracle returned status %d", resp.StatusCode)
	}

	var body struct {
		DistanceKM float64 `json:"distance_km"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.DistanceKM, nil
}
