package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
)

// Service fetches meeting documents from the notes API. Requests are
// bearer-authenticated POSTs; transient failures are retried with
// exponential backoff, authorization failures are not.
type Service struct {
	config  *common.Config
	token   string
	client  *http.Client
	retry   RetryConfig
	logger  arbor.ILogger
	baseURL string
}

// NewService creates a document fetcher using the given access token.
func NewService(config *common.Config, token string, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		token:  token,
		client: &http.Client{
			Timeout: config.RequestTimeoutDuration(),
		},
		retry:   RetryConfigFromAPI(config.API),
		logger:  logger,
		baseURL: config.API.BaseURL,
	}
}

// FetchSince retrieves documents created after the given time, oldest first.
// The API does not guarantee ordering, so results are sorted locally before
// return. Checkpoint advancement depends on that ordering.
func (s *Service) FetchSince(ctx context.Context, since time.Time, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = s.config.API.FetchLimit
	}

	payload := fetchRequest{
		Limit:                  limit,
		Offset:                 0,
		IncludeLastViewedPanel: true,
	}
	if !since.IsZero() {
		payload.CreatedAfter = since.UTC().Format(time.RFC3339)
	}

	s.logger.Info().
		Str("created_after", payload.CreatedAfter).
		Int("limit", limit).
		Msg("Fetching documents")

	envelope, err := s.getDocuments(ctx, payload)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(envelope.Docs))
	for _, raw := range envelope.Docs {
		doc, err := raw.toDocument()
		if err != nil {
			s.logger.Warn().Err(err).Str("document_id", raw.ID).Msg("Skipping unparseable document")
			continue
		}
		docs = append(docs, doc)
	}

	// Oldest first so checkpoint advancement stays monotonic
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	s.logger.Info().Int("count", len(docs)).Msg("Fetched documents")
	return docs, nil
}

// FetchByID retrieves a single document. The API has no by-id endpoint, so
// this scans a recent batch for a matching ID and returns
// models.ErrDocumentNotFound when absent.
func (s *Service) FetchByID(ctx context.Context, id string) (*models.Document, error) {
	envelope, err := s.getDocuments(ctx, fetchRequest{
		Limit:                  s.config.API.FetchLimit,
		IncludeLastViewedPanel: true,
	})
	if err != nil {
		return nil, err
	}

	for _, raw := range envelope.Docs {
		if raw.ID != id {
			continue
		}
		doc, err := raw.toDocument()
		if err != nil {
			return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
		}
		s.logger.Info().Str("document_id", id).Str("title", doc.Title).Msg("Found document")
		return &doc, nil
	}

	s.logger.Warn().Str("document_id", id).Msg("Document not found")
	return nil, models.ErrDocumentNotFound
}

// getDocuments posts to /get-documents with retry on transient failures.
func (s *Service) getDocuments(ctx context.Context, payload fetchRequest) (*fetchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fetch request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.retry.CalculateBackoff(attempt)
			s.logger.Warn().
				Int("attempt", attempt).
				Str("backoff", backoff.String()).
				Err(lastErr).
				Msg("Retrying fetch after transient failure")

			select {
			case <-ctx.Done():
				return nil, models.NewTransientFetchError(ctx.Err())
			case <-time.After(backoff):
			}
		}

		envelope, err := s.doRequest(ctx, body)
		if err == nil {
			return envelope, nil
		}

		// Authorization failures never recover by retrying
		if models.IsAuthorizationError(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

func (s *Service) doRequest(ctx context.Context, body []byte) (*fetchResponse, error) {
	url := s.baseURL + "/get-documents"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewTransientFetchError(err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", "Granola/"+s.config.API.ClientVersion)
	req.Header.Set("X-Client-Version", s.config.API.ClientVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.NewTransientFetchError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, models.NewAuthFetchError(fmt.Errorf("API returned %d: token rejected", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, models.NewTransientFetchError(fmt.Errorf("API returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransientFetchError(fmt.Errorf("failed to read response body: %w", err))
	}

	var envelope fetchResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, models.NewTransientFetchError(fmt.Errorf("failed to parse response: %w", err))
	}

	if envelope.Docs == nil {
		s.logger.Warn().Msg("Response has no docs array")
		envelope.Docs = []documentEnvelope{}
	}

	return &envelope, nil
}

// IsNotFound reports whether err indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrDocumentNotFound)
}

// Compile-time interface check
var _ interfaces.DocumentFetcher = (*Service)(nil)
