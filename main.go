package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"tushare-db-syncer/config"
	"tushare-db-syncer/logger"
	"tushare-db-syncer/server"
	"tushare-db-syncer/syncer"
	"tushare-db-syncer/tushare"
)

var (
	exchangeFlag   = flag.String("exchange", "", "exchange filter (SSE, SZSE or empty for all)")
	listStatusFlag = flag.String("list-status", "L", "list status filter (L, D or P)")
	timeoutFlag    = flag.Int("timeout-s", 30, "upstream request timeout in seconds")
	dryRunFlag     = flag.Bool("dry-run", false, "fetch without persisting and print only the fetched count")
	serveFlag      = flag.Bool("serve", false, "run the HTTP sync endpoint instead of a one-shot sync")
	addrFlag       = flag.String("addr", ":8000", "HTTP listen address with -serve")
	envFileFlag    = flag.String("env-file", ".env", "fallback KEY=VALUE credentials file")
)

func main() {
	defer logger.Sync()

	if err := run(context.Background()); err != nil {
		logger.Fatal("Fatal error: %s", err)
	}
}

func run(ctx context.Context) error {
	flag.Parse()
	cfg, err := config.BuildConfig()
	if err != nil {
		return errors.Wrap(err, "config error")
	}

	config.GlobalConfigCallback.Call(cfg)

	env := config.LoadEnv(*envFileFlag)
	s := syncer.New(env, cfg)

	params := syncer.Params{
		Exchange:   *exchangeFlag,
		ListStatus: *listStatusFlag,
		Timeout:    time.Duration(*timeoutFlag) * time.Second,
	}

	if *serveFlag {
		return server.New(s.SyncStockBasic, *addrFlag).Run(ctx)
	}

	if *dryRunFlag {
		fetched, err := s.FetchOnly(ctx, params)
		if err != nil {
			return err
		}

		return printSummary(map[string]int{"fetched": fetched})
	}

	return runSync(ctx, s, params)
}

// runSync retries the whole sync on network-level upstream failures only; the
// pipeline itself never retries. Everything else is permanent per call.
func runSync(ctx context.Context, s *syncer.Syncer, params syncer.Params) error {
	var result *syncer.Result

	bOff := backoff.NewExponentialBackOff()
	bOff.MaxElapsedTime = config.BackoffMaxElapsedTime

	err := backoff.RetryNotify(
		func() error {
			res, err := s.SyncStockBasic(ctx, params)
			if err != nil {
				var unavailable *tushare.UnavailableError
				if errors.As(err, &unavailable) {
					return err
				}

				return backoff.Permanent(err)
			}

			result = res
			return nil
		},
		bOff,
		func(err error, d time.Duration) {
			logger.Error("Sync error: %s. Will retry after %s", err, d)
		},
	)
	if err != nil {
		return errors.Wrap(err, "sync fatal error")
	}

	return printSummary(result)
}

func printSummary(v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
