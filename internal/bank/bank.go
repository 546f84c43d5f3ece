package bank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"appliance-billing-backend/config"
	"appliance-billing-backend/internal/metrics"
	"appliance-billing-backend/internal/parse"
	"appliance-billing-backend/internal/store"
)

// maxStatementBytes caps how much of a statement response is read.
const maxStatementBytes = 16 << 20

// Service polls the bank for new statements and credits rooms from them.
type Service struct {
	cfg    config.BankConfig
	store  store.Store
	client *http.Client
	now    func() time.Time
}

// NewService creates a bank poller. An invalid proxy URL is logged and ignored.
func NewService(cfg config.BankConfig, s store.Store) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid bank proxy URL; polling without a proxy")
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:   cfg,
		store: s,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		now: time.Now,
	}
}

// Run polls once immediately and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Info().Msg("bank polling is disabled")
		return
	}
	log.Info().Dur("interval", s.cfg.Interval).Msg("starting bank poller")

	s.poll(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("bank poller shutting down")
			return
		case <-timer.C:
			s.poll(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	if _, err := s.IngestOnce(ctx); err != nil {
		metrics.BankPollErrorsTotal.Inc()
		log.Error().Err(err).Msg("bank ingestion failed")
	}
}

// IngestOnce fetches one statement and reconciles it against the ledger.
func (s *Service) IngestOnce(ctx context.Context) (*store.ReconcileResult, error) {
	body, err := s.fetchStatement(ctx)
	if err != nil {
		return nil, err
	}

	txns, rejects, err := parse.Statement(body)
	if err != nil {
		return nil, err
	}
	for _, reject := range rejects {
		log.Warn().Str("transaction_id", reject.ID).Int("row", reject.Row).Err(reject.Err).
			Msg("skipping unreadable bank transaction")
	}
	metrics.BankPaymentsTotal.WithLabelValues("malformed").Add(float64(len(rejects)))

	if len(txns) == 0 {
		log.Debug().Msg("bank statement has no new transfers")
		return &store.ReconcileResult{Malformed: len(rejects)}, nil
	}

	result, err := s.store.ReconcilePayments(ctx, s.now().UTC(), txns, s.cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payments: %w", err)
	}
	result.Malformed = len(rejects)

	metrics.BankPaymentsTotal.WithLabelValues("valid").Add(float64(result.Valid))
	metrics.BankPaymentsTotal.WithLabelValues("invalid").Add(float64(result.Invalid))
	log.Info().
		Int("valid", result.Valid).
		Int("invalid", result.Invalid).
		Int("skipped", result.Skipped).
		Int("malformed", result.Malformed).
		Int("rooms", result.RoomsCredited).
		Int64("deposited", result.DepositedTotal).
		Msg("bank statement reconciled")
	return result, nil
}

func (s *Service) fetchStatement(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatementBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
