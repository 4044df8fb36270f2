package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/marketinni/backend/config"
	"github.com/marketinni/backend/models"
)

// Batch pacing for quote fetches, to stay under the provider's
// per-minute rate limit
const (
	QuoteFetchBatchSize  = 20
	QuoteFetchBatchDelay = 100 * time.Millisecond
)

// finnhubQuote is the provider's /quote response shape
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// FinnhubService fetches current market quotes from the Finnhub REST API
type FinnhubService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Global quote service instance
var GlobalQuoteService *FinnhubService

// InitQuoteService initializes the global Finnhub quote service
func InitQuoteService() error {
	cfg := config.AppConfig
	if cfg.FinnhubAPIKey == "" {
		log.Println("FINNHUB_API_KEY not set, quote fetches will fail")
	}

	GlobalQuoteService = NewFinnhubService(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey)
	log.Println("Quote service initialized")
	return nil
}

// NewFinnhubService creates a Finnhub client
func NewFinnhubService(baseURL, apiKey string) *FinnhubService {
	return &FinnhubService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetQuotes fetches current quotes for a set of symbols. Symbols the
// provider does not know are simply absent from the result map; a
// provider error for one symbol does not fail the batch. The context
// deadline bounds the whole fetch.
func (s *FinnhubService) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	quotes := make(map[string]models.Quote, len(symbols))

	for i := 0; i < len(symbols); i += QuoteFetchBatchSize {
		end := i + QuoteFetchBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		for _, symbol := range symbols[i:end] {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("quote fetch aborted: %w", err)
			}

			quote, err := s.fetchQuote(ctx, symbol)
			if err != nil {
				log.Printf("Error fetching quote for %s: %v", symbol, err)
				continue
			}
			if quote == nil {
				continue
			}
			quotes[symbol] = *quote
		}

		// Small delay between batches to avoid rate limiting
		if end < len(symbols) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("quote fetch aborted: %w", ctx.Err())
			case <-time.After(QuoteFetchBatchDelay):
			}
		}
	}

	return quotes, nil
}

// fetchQuote fetches a single symbol. Returns (nil, nil) when the
// provider has no price for the symbol.
func (s *FinnhubService) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		s.baseURL, url.QueryEscape(symbol), s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}

	var fq finnhubQuote
	if err := json.NewDecoder(resp.Body).Decode(&fq); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}

	// Finnhub answers unknown symbols with an all-zero quote
	if fq.Current == 0 || math.IsNaN(fq.Current) || math.IsInf(fq.Current, 0) {
		return nil, nil
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         fq.Current,
		Change:        fq.Change,
		PercentChange: fq.PercentChange,
	}, nil
}
