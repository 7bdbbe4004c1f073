package repository

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"MarketCast/pkg/sqldb"
)

// sqliteTimeLayout is fixed width so TEXT comparisons order like instants.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// dialect captures the SQL differences between store backends.
type dialect struct {
	name sqldb.Dialect
	// Integer backends assign ids themselves; otherwise the store generates a UUID.
	serialIDs bool
	// returning is true when INSERT ... RETURNING id is needed to learn the id.
	returning bool
	numbered  bool
	// transactions is false where a DELETE cannot share a transaction with an INSERT.
	transactions bool
	schema       []string
}

func dialectFor(d sqldb.Dialect) (dialect, error) {
	switch d {
	case sqldb.SQLite:
		return dialect{name: d, serialIDs: true, transactions: true, schema: sqliteSchema}, nil
	case sqldb.Postgres:
		return dialect{name: d, serialIDs: true, returning: true, numbered: true, transactions: true, schema: postgresSchema}, nil
	case sqldb.ClickHouse:
		return dialect{name: d, schema: clickhouseSchema}, nil
	}
	return dialect{}, fmt.Errorf("prediction store: unsupported dialect %q", d)
}

// ph returns the i-th (1-based) bind placeholder.
func (d dialect) ph(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// timeArg converts t into the bind value the backend compares correctly.
func (d dialect) timeArg(t time.Time) any {
	if d.name == sqldb.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// validID rejects ids that cannot exist in a serial id column.
func (d dialect) validID(id string) bool {
	if !d.serialIDs {
		return id != ""
	}
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

// dbTime scans the time representations the supported drivers return.
type dbTime struct{ t time.Time }

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.t = v
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case int64:
		d.t = time.Unix(v, 0)
		return nil
	case nil:
		d.t = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (d *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			d.t = t
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

// nullable turns an optional float into a bind value.
func nullable(v *float64) driver.Value {
	if v == nil {
		return nil
	}
	return *v
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS stock_predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		stock_name TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		current_price REAL,
		predicted_price REAL,
		trend TEXT CHECK (trend IN ('UP','DOWN','SIDEWAYS')),
		confidence REAL NOT NULL DEFAULT 0,
		accuracy_percent REAL,
		stop_loss REAL,
		status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
		model TEXT NOT NULL DEFAULT '',
		prediction_time_ist TEXT NOT NULL,
		prediction_valid_till_ist TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_predictions_lookup
		ON stock_predictions (user_id, stock_name, timeframe, prediction_valid_till_ist)`,
	`CREATE TABLE IF NOT EXISTS crypto_predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		coin TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		current_price REAL,
		predicted_price REAL,
		trend TEXT CHECK (trend IN ('UP','DOWN','SIDEWAYS')),
		confidence REAL NOT NULL DEFAULT 0,
		stop_loss REAL,
		status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
		model TEXT NOT NULL DEFAULT '',
		prediction_time_ist TEXT NOT NULL,
		prediction_valid_till_ist TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crypto_predictions_lookup
		ON crypto_predictions (user_id, coin, timeframe, prediction_valid_till_ist)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS stock_predictions (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL,
		stock_name TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		current_price DOUBLE PRECISION,
		predicted_price DOUBLE PRECISION,
		trend TEXT CHECK (trend IN ('UP','DOWN','SIDEWAYS')),
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		accuracy_percent DOUBLE PRECISION,
		stop_loss DOUBLE PRECISION,
		status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
		model TEXT NOT NULL DEFAULT '',
		prediction_time_ist TIMESTAMPTZ NOT NULL,
		prediction_valid_till_ist TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_predictions_lookup
		ON stock_predictions (user_id, stock_name, timeframe, prediction_valid_till_ist)`,
	`CREATE TABLE IF NOT EXISTS crypto_predictions (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL,
		coin TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		current_price DOUBLE PRECISION,
		predicted_price DOUBLE PRECISION,
		trend TEXT CHECK (trend IN ('UP','DOWN','SIDEWAYS')),
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		stop_loss DOUBLE PRECISION,
		status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
		model TEXT NOT NULL DEFAULT '',
		prediction_time_ist TIMESTAMPTZ NOT NULL,
		prediction_valid_till_ist TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crypto_predictions_lookup
		ON crypto_predictions (user_id, coin, timeframe, prediction_valid_till_ist)`,
}

var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS stock_predictions (
		id String,
		user_id String,
		stock_name LowCardinality(String),
		timeframe LowCardinality(String),
		current_price Nullable(Float64),
		predicted_price Nullable(Float64),
		trend Nullable(String),
		confidence Float64,
		accuracy_percent Nullable(Float64),
		stop_loss Nullable(Float64),
		status LowCardinality(String),
		model String,
		prediction_time_ist DateTime64(3, 'Asia/Kolkata'),
		prediction_valid_till_ist DateTime64(3, 'Asia/Kolkata'),
		created_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree ORDER BY (user_id, stock_name, timeframe, prediction_time_ist)`,
	`CREATE TABLE IF NOT EXISTS crypto_predictions (
		id String,
		user_id String,
		coin LowCardinality(String),
		timeframe LowCardinality(String),
		current_price Nullable(Float64),
		predicted_price Nullable(Float64),
		trend Nullable(String),
		confidence Float64,
		stop_loss Nullable(Float64),
		status LowCardinality(String),
		model String,
		prediction_time_ist DateTime64(3, 'Asia/Kolkata'),
		prediction_valid_till_ist DateTime64(3, 'Asia/Kolkata'),
		created_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree ORDER BY (user_id, coin, timeframe, prediction_time_ist)`,
}
