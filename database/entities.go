package database

import "time"

// StockBasic mirrors one row of the upstream stock_basic dataset. TsCode is
// the upstream-assigned instrument code and never changes for an instrument;
// every other upstream column is overwritten wholesale on each sync.
type StockBasic struct {
	TsCode     string     `gorm:"primaryKey;type:varchar(20)"`
	Symbol     *string    `gorm:"type:varchar(20)"`
	Name       *string    `gorm:"type:varchar(100)"`
	Area       *string    `gorm:"type:varchar(50)"`
	Industry   *string    `gorm:"type:varchar(100)"`
	Fullname   *string    `gorm:"type:text"`
	Enname     *string    `gorm:"type:text"`
	Cnspell    *string    `gorm:"type:varchar(50)"`
	Market     *string    `gorm:"type:varchar(50)"`
	Exchange   *string    `gorm:"type:varchar(20)"`
	CurrType   *string    `gorm:"type:varchar(10)"`
	ListStatus *string    `gorm:"type:varchar(4)"`
	ListDate   *time.Time `gorm:"type:date"`
	DelistDate *time.Time `gorm:"type:date"`
	IsHs       *string    `gorm:"type:varchar(4)"`
	ActName    *string    `gorm:"type:text"`
	ActEntType *string    `gorm:"type:text"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StockBasic) TableName() string {
	return "stock_basic"
}

// ColumnNames is the ordered upstream field list, shared by the fetch request,
// the row transformer and the upsert column set so the three cannot drift.
var ColumnNames = []string{
	"ts_code",
	"symbol",
	"name",
	"area",
	"industry",
	"fullname",
	"enname",
	"cnspell",
	"market",
	"exchange",
	"curr_type",
	"list_status",
	"list_date",
	"delist_date",
	"is_hs",
	"act_name",
	"act_ent_type",
}
