package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"tushare-db-syncer/config"
	"tushare-db-syncer/database"
	"tushare-db-syncer/logger"
	"tushare-db-syncer/tushare"
)

// Result summarizes one completed sync. Fetched counts the rows the provider
// returned, Saved the rows written after in-batch deduplication.
type Result struct {
	Fetched int `json:"fetched"`
	Saved   int `json:"saved"`
}

// Params narrows one sync invocation. Zero values fall back to the [syncer]
// config section.
type Params struct {
	Exchange   string
	ListStatus string
	Fields     []string
	Timeout    time.Duration
}

// Syncer composes credential resolution, one upstream fetch, per-row
// transformation and one batch upsert into a single end-to-end operation.
// There is no partial-success mode and no internal retry: every failure kind
// surfaces unchanged to the caller.
type Syncer struct {
	env *config.Env
	cfg *config.Config

	// OpenDB opens the per-invocation connection scope. Tests swap in an
	// embedded database here.
	OpenDB func(ctx context.Context, dsn string) (*gorm.DB, error)

	// NewClient builds the upstream client for a resolved token.
	NewClient func(token string) *tushare.Client
}

func New(env *config.Env, cfg *config.Config) *Syncer {
	return &Syncer{
		env:       env,
		cfg:       cfg,
		OpenDB:    database.ConnectAndInitialize,
		NewClient: tushare.NewClient,
	}
}

// SyncStockBasic runs one full fetch-transform-persist cycle and returns the
// fetch/save counts.
func (s *Syncer) SyncStockBasic(ctx context.Context, params Params) (*Result, error) {
	runID := uuid.New().String()
	params = s.applyDefaults(params)

	token, err := s.env.TushareToken()
	if err != nil {
		return nil, err
	}

	dsn, err := s.env.PostgresDSN()
	if err != nil {
		return nil, err
	}

	startTime := time.Now()

	raw, err := s.fetch(ctx, token, params)
	if err != nil {
		return nil, err
	}

	records := make([]database.StockBasic, len(raw))
	for i, r := range raw {
		records[i] = tushare.ToStockBasic(r)
	}

	db, err := s.OpenDB(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "SyncStockBasic: OpenDB")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("sync %s: closing database: %s", runID, err)
		}
	}()

	saved, err := database.UpsertStockBasic(db, records)
	if err != nil {
		return nil, errors.Wrap(err, "SyncStockBasic: UpsertStockBasic")
	}

	logger.Info(
		"sync %s finished in %d milliseconds: fetched=%d saved=%d",
		runID, time.Since(startTime).Milliseconds(), len(raw), saved,
	)

	return &Result{Fetched: len(raw), Saved: int(saved)}, nil
}

// FetchOnly resolves the token and performs the upstream fetch without
// touching storage. Used by the CLI dry-run mode.
func (s *Syncer) FetchOnly(ctx context.Context, params Params) (int, error) {
	params = s.applyDefaults(params)

	token, err := s.env.TushareToken()
	if err != nil {
		return 0, err
	}

	raw, err := s.fetch(ctx, token, params)
	if err != nil {
		return 0, err
	}

	return len(raw), nil
}

func (s *Syncer) fetch(ctx context.Context, token string, params Params) ([]tushare.RawRecord, error) {
	client := s.NewClient(token)

	return client.FetchStockBasic(ctx, tushare.FetchParams{
		Exchange:   params.Exchange,
		ListStatus: params.ListStatus,
		Fields:     params.Fields,
		Timeout:    params.Timeout,
	})
}

func (s *Syncer) applyDefaults(params Params) Params {
	defaults := s.cfg.Syncer

	if params.Exchange == "" {
		params.Exchange = defaults.Exchange
	}

	if params.ListStatus == "" {
		params.ListStatus = defaults.ListStatus
	}

	if params.Timeout <= 0 && defaults.TimeoutSeconds > 0 {
		params.Timeout = time.Duration(defaults.TimeoutSeconds) * time.Second
	}

	return params
}
