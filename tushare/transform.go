package tushare

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tushare-db-syncer/database"
)

// ToStockBasic coerces one raw upstream row into the storage schema. Absent
// or null fields become nil columns, never a missing-key fault.
func ToStockBasic(raw RawRecord) database.StockBasic {
	return database.StockBasic{
		TsCode:     stringValue(raw["ts_code"]),
		Symbol:     stringColumn(raw["symbol"]),
		Name:       stringColumn(raw["name"]),
		Area:       stringColumn(raw["area"]),
		Industry:   stringColumn(raw["industry"]),
		Fullname:   stringColumn(raw["fullname"]),
		Enname:     stringColumn(raw["enname"]),
		Cnspell:    stringColumn(raw["cnspell"]),
		Market:     stringColumn(raw["market"]),
		Exchange:   stringColumn(raw["exchange"]),
		CurrType:   stringColumn(raw["curr_type"]),
		ListStatus: stringColumn(raw["list_status"]),
		ListDate:   ParseCompactDate(raw["list_date"]),
		DelistDate: ParseCompactDate(raw["delist_date"]),
		IsHs:       stringColumn(raw["is_hs"]),
		ActName:    stringColumn(raw["act_name"]),
		ActEntType: stringColumn(raw["act_ent_type"]),
	}
}

// ParseCompactDate parses the upstream YYYYMMDD token. Blank or malformed
// values degrade to nil, they never fail the row.
func ParseCompactDate(v interface{}) *time.Time {
	if v == nil {
		return nil
	}

	text := strings.TrimSpace(stringValue(v))
	if text == "" {
		return nil
	}

	t, err := time.ParseInLocation("20060102", text, time.UTC)
	if err != nil {
		return nil
	}

	return &t
}

func stringColumn(v interface{}) *string {
	if v == nil {
		return nil
	}

	s := stringValue(v)
	return &s
}

func stringValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
