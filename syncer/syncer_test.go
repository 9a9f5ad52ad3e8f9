package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"tushare-db-syncer/config"
	"tushare-db-syncer/database"
	"tushare-db-syncer/tushare"
)

const stockBasicResponse = `{
	"code": 0,
	"msg": "",
	"data": {
		"fields": ["ts_code", "symbol", "name", "list_date", "delist_date"],
		"items": [
			["000001.SZ", "000001", "平安银行", "19910403", null],
			["600000.SH", "600000", "浦发银行", "19991110", null],
			["600000.SH", "600000", "浦发银行A", "19991110", null]
		]
	}
}`

type testEnv struct {
	t      *testing.T
	syncer *Syncer
	dbPath string
}

// newTestSyncer wires a syncer against an httptest upstream and a file-backed
// sqlite database standing in for Postgres.
func newTestSyncer(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TUSHARE_TOKEN", "test-token")
	t.Setenv("POSTGRES_DSN", "resolved-but-unused")

	dbPath := filepath.Join(t.TempDir(), "syncer.db")

	cfg := &config.Config{
		Syncer: config.SyncerConfig{ListStatus: "L", TimeoutSeconds: 5},
	}

	s := New(config.LoadEnv(filepath.Join(t.TempDir(), "no-env-file")), cfg)
	s.NewClient = func(token string) *tushare.Client {
		client := tushare.NewClient(token)
		client.BaseURL = srv.URL
		return client
	}
	s.OpenDB = func(ctx context.Context, dsn string) (*gorm.DB, error) {
		return openSQLite(ctx, dbPath)
	}

	return &testEnv{t: t, syncer: s, dbPath: dbPath}
}

func openSQLite(ctx context.Context, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&database.StockBasic{}); err != nil {
		return nil, err
	}

	return db.WithContext(ctx), nil
}

func (te *testEnv) readAll() []database.StockBasic {
	te.t.Helper()

	db, err := openSQLite(context.Background(), te.dbPath)
	if err != nil {
		te.t.Fatal(err)
	}
	defer func() { _ = database.Close(db) }()

	var rows []database.StockBasic
	if err := db.Order("ts_code").Find(&rows).Error; err != nil {
		te.t.Fatal(err)
	}

	return rows
}

func TestSyncStockBasic(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(stockBasicResponse))
	})

	result, err := te.syncer.SyncStockBasic(context.Background(), Params{})
	if err != nil {
		t.Fatalf("SyncStockBasic() unexpected error: %v", err)
	}

	if result.Fetched != 3 {
		t.Errorf("Fetched = %d, want 3", result.Fetched)
	}
	if result.Saved != 2 {
		t.Errorf("Saved = %d, want duplicate ts_code collapsed to 2", result.Saved)
	}

	rows := te.readAll()
	if len(rows) != 2 {
		t.Fatalf("stored rows = %d, want 2", len(rows))
	}
	if rows[1].Name == nil || *rows[1].Name != "浦发银行A" {
		t.Errorf("duplicate code kept %v, want last-seen value", rows[1].Name)
	}
	if rows[0].ListDate == nil || rows[0].ListDate.Format("20060102") != "19910403" {
		t.Errorf("ListDate = %v", rows[0].ListDate)
	}
}

func TestSyncStockBasicIdempotent(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(stockBasicResponse))
	})

	first, err := te.syncer.SyncStockBasic(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	before := te.readAll()

	time.Sleep(50 * time.Millisecond)

	second, err := te.syncer.SyncStockBasic(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	after := te.readAll()

	if first.Saved != second.Saved {
		t.Errorf("Saved unstable across repeats: %d vs %d", first.Saved, second.Saved)
	}
	if len(before) != len(after) {
		t.Fatalf("row count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if *before[i].Name != *after[i].Name {
			t.Errorf("row %s changed: %q vs %q", before[i].TsCode, *before[i].Name, *after[i].Name)
		}
		if !after[i].UpdatedAt.After(before[i].UpdatedAt) {
			t.Errorf("row %s UpdatedAt did not advance", before[i].TsCode)
		}
	}
}

func TestSyncStockBasicEmptyUpstream(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "msg": "", "data": {"fields": [], "items": []}}`))
	})

	result, err := te.syncer.SyncStockBasic(context.Background(), Params{})
	if err != nil {
		t.Fatalf("SyncStockBasic() unexpected error: %v", err)
	}
	if result.Fetched != 0 || result.Saved != 0 {
		t.Errorf("result = %+v, want zero counts", result)
	}
	if rows := te.readAll(); len(rows) != 0 {
		t.Errorf("stored rows = %d, want 0", len(rows))
	}
}

func TestSyncStockBasicMissingCredentials(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(stockBasicResponse))
	})

	t.Setenv("TUSHARE_TOKEN", "")
	t.Setenv("TUSHARE_PRO_TOKEN", "")

	_, err := te.syncer.SyncStockBasic(context.Background(), Params{})

	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *config.ConfigurationError", err)
	}
}

func TestSyncStockBasicPropagatesProtocolError(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 40203, "msg": "rate limited", "data": null}`))
	})

	_, err := te.syncer.SyncStockBasic(context.Background(), Params{})

	var protocolErr *tushare.ProtocolError
	if !errors.As(err, &protocolErr) {
		t.Fatalf("error type = %T, want *tushare.ProtocolError", err)
	}
	if rows := te.readAll(); len(rows) != 0 {
		t.Errorf("stored rows = %d, want no partial write", len(rows))
	}
}

func TestFetchOnly(t *testing.T) {
	te := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(stockBasicResponse))
	})

	fetched, err := te.syncer.FetchOnly(context.Background(), Params{})
	if err != nil {
		t.Fatalf("FetchOnly() unexpected error: %v", err)
	}
	if fetched != 3 {
		t.Errorf("fetched = %d, want 3", fetched)
	}
	if rows := te.readAll(); len(rows) != 0 {
		t.Errorf("stored rows = %d, want dry run to persist nothing", len(rows))
	}
}
