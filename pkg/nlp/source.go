package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medreview-ai/platform/pkg/common/httpclient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Source yields the provider's completed analysis for a chase. A nil response
// with a nil error means no completed analysis exists; callers treat that as
// "no data", not a failure.
type Source interface {
	GetCompletedResponse(ctx context.Context, chaseID int) (*SubmissionResponse, error)
}

// RequestLogSource reads the completed response out of the nlp_requests log.
type RequestLogSource struct {
	repo *Repository
}

func NewRequestLogSource(repo *Repository) *RequestLogSource {
	return &RequestLogSource{repo: repo}
}

func (s *RequestLogSource) GetCompletedResponse(ctx context.Context, chaseID int) (*SubmissionResponse, error) {
	request, err := s.repo.GetRequest(ctx, chaseID, RequestStatusCompleted)
	if err == ErrRequestNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(request.ResponseDetail) == 0 {
		return nil, nil
	}

	var response SubmissionResponse
	if err := json.Unmarshal(request.ResponseDetail, &response); err != nil {
		return nil, fmt.Errorf("failed to decode nlp response for chase %d: %w", chaseID, err)
	}
	return &response, nil
}

// HTTPSource fetches the completed analysis straight from the provider's
// results API using client-credentials auth.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL, tokenURL, clientID, clientSecret string, timeout time.Duration) *HTTPSource {
	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	// Route token and API calls through the tuned outbound client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpclient.New(timeout))
	client := creds.Client(ctx)
	client.Timeout = timeout

	return &HTTPSource{baseURL: baseURL, client: client}
}

func (s *HTTPSource) GetCompletedResponse(ctx context.Context, chaseID int) (*SubmissionResponse, error) {
	url := fmt.Sprintf("%s/v1/chases/%d/results", s.baseURL, chaseID)

	var body []byte
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			body = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("provider returned status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nlp results for chase %d: %w", chaseID, err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var response SubmissionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode nlp results for chase %d: %w", chaseID, err)
	}
	return &response, nil
}
