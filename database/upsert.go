package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tushare-db-syncer/logger"
)

// updateColumns are the columns overwritten on a ts_code conflict: every
// non-key upstream column plus the refreshed updated_at.
var updateColumns = func() []string {
	cols := make([]string, 0, len(ColumnNames))
	for _, c := range ColumnNames {
		if c != "ts_code" {
			cols = append(cols, c)
		}
	}
	return append(cols, "updated_at")
}()

// UpsertStockBasic writes the batch as one conflict-aware insert: new ts_codes
// are created, existing ones have all upstream columns overwritten and
// updated_at refreshed. Returns the number of rows written after in-batch
// deduplication. An empty batch issues no statement.
func UpsertStockBasic(db *gorm.DB, records []StockBasic) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := dedupeByTsCode(records)
	if len(rows) == 0 {
		return 0, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ts_code"}},
			DoUpdates: clause.AssignmentColumns(updateColumns),
		}).CreateInBatches(rows, UpsertBatchSize).Error
		if err != nil {
			return errors.Wrap(err, "UpsertStockBasic: CreateInBatches")
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

// dedupeByTsCode collapses duplicate ts_codes to the last-seen record, keeping
// the first-seen position. A multi-row INSERT ... ON CONFLICT touching the
// same key twice is rejected by Postgres, so duplicates must collapse here.
// Records without a ts_code cannot be keyed and are dropped.
func dedupeByTsCode(records []StockBasic) []StockBasic {
	rows := make([]StockBasic, 0, len(records))
	seen := make(map[string]int, len(records))
	dropped := 0

	for _, record := range records {
		if record.TsCode == "" {
			dropped++
			continue
		}

		if i, ok := seen[record.TsCode]; ok {
			rows[i] = record
			continue
		}

		seen[record.TsCode] = len(rows)
		rows = append(rows, record)
	}

	if dropped > 0 {
		logger.Warn("dropped %d records without ts_code", dropped)
	}

	return rows
}
