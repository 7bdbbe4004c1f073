package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/repository"
	"MarketCast/pkg/logger"
	"MarketCast/pkg/sqldb"
	"MarketCast/pkg/util"

	"github.com/google/uuid"
)

const (
	stockTable  = "stock_predictions"
	cryptoTable = "crypto_predictions"
)

// SQLPredictionStore implements PredictionStore over database/sql for every
// dialect in pkg/sqldb. Rows are only inserted and, under the supersede
// policy, deleted; never updated.
type SQLPredictionStore struct {
	client  *sqldb.Client
	db      *sql.DB
	dialect dialect
	logger  *logger.Logger
	now     func() time.Time
}

// NewSQLPredictionStore wraps an open client.
func NewSQLPredictionStore(client *sqldb.Client, l *logger.Logger) (*SQLPredictionStore, error) {
	d, err := dialectFor(client.Dialect())
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SQLPredictionStore{
		client:  client,
		db:      client.DB(),
		dialect: d,
		logger:  l,
		now:     time.Now,
	}, nil
}

var _ repository.PredictionStore = (*SQLPredictionStore)(nil)

func (s *SQLPredictionStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, s.dialect.schema); err != nil {
		return models.PersistenceFailure("store.init", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLPredictionStore) InsertStock(ctx context.Context, p *models.StockPrediction) (string, error) {
	cols, args, err := s.stockRow(p)
	if err != nil {
		return "", err
	}
	return s.insert(ctx, s.db, "store.insert_stock", stockTable, cols, args)
}

func (s *SQLPredictionStore) InsertCrypto(ctx context.Context, p *models.CryptoPrediction) (string, error) {
	cols, args, err := s.cryptoRow(p)
	if err != nil {
		return "", err
	}
	return s.insert(ctx, s.db, "store.insert_crypto", cryptoTable, cols, args)
}

// SupersedeStock stores p in place of the same user's unexpired rows for its
// stock and timeframe. Either both happen or neither does.
func (s *SQLPredictionStore) SupersedeStock(ctx context.Context, p *models.StockPrediction) (string, int64, error) {
	cols, args, err := s.stockRow(p)
	if err != nil {
		return "", 0, err
	}
	key := repository.SupersedeKey{Class: models.AssetStock, UserID: p.UserID, Asset: p.StockName, Timeframe: p.Timeframe}
	return s.supersede(ctx, "store.supersede_stock", stockTable, key, p.PredictionTimeIST, cols, args)
}

// SupersedeCrypto is SupersedeStock for coins.
func (s *SQLPredictionStore) SupersedeCrypto(ctx context.Context, p *models.CryptoPrediction) (string, int64, error) {
	cols, args, err := s.cryptoRow(p)
	if err != nil {
		return "", 0, err
	}
	key := repository.SupersedeKey{Class: models.AssetCrypto, UserID: p.UserID, Asset: p.Coin, Timeframe: p.Timeframe}
	return s.supersede(ctx, "store.supersede_crypto", cryptoTable, key, p.PredictionTimeIST, cols, args)
}

func (s *SQLPredictionStore) stockRow(p *models.StockPrediction) ([]string, []any, error) {
	if p == nil {
		return nil, nil, models.ValidationFailure("store.insert_stock", "nil record")
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	cols := []string{"user_id", "stock_name", "timeframe", "current_price", "predicted_price", "trend",
		"confidence", "accuracy_percent", "stop_loss", "status", "model",
		"prediction_time_ist", "prediction_valid_till_ist", "created_at"}
	args := []any{p.UserID.String(), p.StockName, string(p.Timeframe), nullable(p.CurrentPrice),
		nullable(p.PredictedPrice), trendArg(p.Trend), p.Confidence, nullable(p.AccuracyPercent),
		nullable(p.StopLoss), string(p.Status), p.Model,
		s.dialect.timeArg(p.PredictionTimeIST), s.dialect.timeArg(p.ValidTillIST), s.dialect.timeArg(s.createdAt())}
	return cols, args, nil
}

func (s *SQLPredictionStore) cryptoRow(p *models.CryptoPrediction) ([]string, []any, error) {
	if p == nil {
		return nil, nil, models.ValidationFailure("store.insert_crypto", "nil record")
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	cols := []string{"user_id", "coin", "timeframe", "current_price", "predicted_price", "trend",
		"confidence", "stop_loss", "status", "model",
		"prediction_time_ist", "prediction_valid_till_ist", "created_at"}
	args := []any{p.UserID.String(), p.Coin, string(p.Timeframe), nullable(p.CurrentPrice),
		nullable(p.PredictedPrice), trendArg(p.Trend), p.Confidence,
		nullable(p.StopLoss), string(p.Status), p.Model,
		s.dialect.timeArg(p.PredictionTimeIST), s.dialect.timeArg(p.ValidTillIST), s.dialect.timeArg(s.createdAt())}
	return cols, args, nil
}

func (s *SQLPredictionStore) createdAt() time.Time { return s.now().Truncate(time.Millisecond) }

func (s *SQLPredictionStore) supersede(ctx context.Context, op, table string, key repository.SupersedeKey, now time.Time, cols []string, args []any) (string, int64, error) {
	if !s.dialect.transactions {
		// Insert first so a failed delete leaves an extra row rather than none.
		id, err := s.insert(ctx, s.db, op, table, cols, args)
		if err != nil {
			return "", 0, err
		}
		n, err := s.deleteUnexpired(ctx, s.db, key, now, id)
		if err != nil {
			s.logger.Warn("superseded rows kept", logger.String("id", id), logger.Error(err))
			return id, 0, nil
		}
		return id, n, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, s.fail(op, table, err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := s.deleteUnexpired(ctx, tx, key, now, "")
	if err != nil {
		return "", 0, err
	}
	id, err := s.insert(ctx, tx, op, table, cols, args)
	if err != nil {
		return "", 0, err
	}
	if err := tx.Commit(); err != nil {
		return "", 0, s.fail(op, table, err)
	}
	return id, n, nil
}

func (s *SQLPredictionStore) insert(ctx context.Context, db execer, op, table string, cols []string, args []any) (string, error) {
	var id string
	if !s.dialect.serialIDs {
		id = uuid.NewString()
		cols = append([]string{"id"}, cols...)
		args = append([]any{id}, args...)
	}
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = s.dialect.ph(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))

	switch {
	case s.dialect.returning:
		var n int64
		if err := db.QueryRowContext(ctx, q+" RETURNING id", args...).Scan(&n); err != nil {
			return "", s.fail(op, table, err)
		}
		id = fmt.Sprint(n)
	case s.dialect.serialIDs:
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return "", s.fail(op, table, err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return "", s.fail(op, table, err)
		}
		id = fmt.Sprint(n)
	default:
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return "", s.fail(op, table, err)
		}
	}
	return id, nil
}

const baseColumns = `CAST(id AS TEXT), user_id, timeframe, current_price, predicted_price, trend,
	confidence, stop_loss, status, model, prediction_time_ist, prediction_valid_till_ist, created_at`

func (s *SQLPredictionStore) GetStock(ctx context.Context, id string) (*models.StockPrediction, error) {
	if !s.dialect.validID(id) {
		return nil, repository.ErrNotFound
	}
	q := fmt.Sprintf("SELECT %s, stock_name, accuracy_percent FROM %s WHERE id = %s", baseColumns, stockTable, s.dialect.ph(1))
	var (
		p        models.StockPrediction
		accuracy sql.NullFloat64
	)
	row := s.db.QueryRowContext(ctx, q, s.idArg(id))
	if err := s.scanBase(row, &p.PredictionBase, &p.StockName, &accuracy); err != nil {
		return nil, s.lookupErr("store.get_stock", err)
	}
	p.AccuracyPercent = floatPtr(accuracy)
	return &p, nil
}

func (s *SQLPredictionStore) GetCrypto(ctx context.Context, id string) (*models.CryptoPrediction, error) {
	if !s.dialect.validID(id) {
		return nil, repository.ErrNotFound
	}
	q := fmt.Sprintf("SELECT %s, coin FROM %s WHERE id = %s", baseColumns, cryptoTable, s.dialect.ph(1))
	var p models.CryptoPrediction
	row := s.db.QueryRowContext(ctx, q, s.idArg(id))
	if err := s.scanBase(row, &p.PredictionBase, &p.Coin); err != nil {
		return nil, s.lookupErr("store.get_crypto", err)
	}
	return &p, nil
}

func (s *SQLPredictionStore) scanBase(row *sql.Row, b *models.PredictionBase, extra ...any) error {
	var (
		userID                       string
		timeframe, status            string
		current, predicted, stopLoss sql.NullFloat64
		trend                        sql.NullString
		at, validTill, created       dbTime
	)
	dest := []any{&b.ID, &userID, &timeframe, &current, &predicted, &trend,
		&b.Confidence, &stopLoss, &status, &b.Model, &at, &validTill, &created}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("bad user_id %q: %w", userID, err)
	}
	b.UserID = uid
	b.Timeframe = models.Timeframe(timeframe)
	b.Status = models.Status(status)
	b.CurrentPrice = floatPtr(current)
	b.PredictedPrice = floatPtr(predicted)
	b.StopLoss = floatPtr(stopLoss)
	if trend.Valid {
		t := models.Trend(trend.String)
		b.Trend = &t
	}
	b.PredictionTimeIST = util.ToIST(at.t)
	b.ValidTillIST = util.ToIST(validTill.t)
	b.CreatedAt = created.t.UTC()
	return nil
}

// DeleteUnexpired removes the rows a new prediction for key supersedes: the
// same user, asset and timeframe whose validity window has not ended at now.
func (s *SQLPredictionStore) DeleteUnexpired(ctx context.Context, key repository.SupersedeKey, now time.Time) (int64, error) {
	return s.deleteUnexpired(ctx, s.db, key, now, "")
}

// deleteUnexpired skips the row keep when it is set.
func (s *SQLPredictionStore) deleteUnexpired(ctx context.Context, db execer, key repository.SupersedeKey, now time.Time, keep string) (int64, error) {
	table, assetCol := stockTable, "stock_name"
	if key.Class == models.AssetCrypto {
		table, assetCol = cryptoTable, "coin"
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE user_id = %s AND %s = %s AND timeframe = %s AND prediction_valid_till_ist > %s",
		table, s.dialect.ph(1), assetCol, s.dialect.ph(2), s.dialect.ph(3), s.dialect.ph(4))
	args := []any{key.UserID.String(), key.Asset, string(key.Timeframe), s.dialect.timeArg(now)}
	if keep != "" {
		q += " AND id != " + s.dialect.ph(5)
		args = append(args, s.idArg(keep))
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.fail("store.delete_unexpired", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// ClickHouse lightweight deletes do not report affected rows.
		return 0, nil
	}
	return n, nil
}

func (s *SQLPredictionStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *SQLPredictionStore) Close() error {
	return s.client.Close()
}

func (s *SQLPredictionStore) idArg(id string) any {
	if s.dialect.serialIDs {
		n, _ := strconv.ParseInt(id, 10, 64)
		return n
	}
	return id
}

func (s *SQLPredictionStore) fail(op, table string, err error) error {
	s.logger.Error("prediction store query failed",
		logger.String("op", op),
		logger.String("table", table),
		logger.String("dialect", string(s.dialect.name)),
		logger.Error(err),
	)
	return models.PersistenceFailure(op, err)
}

func (s *SQLPredictionStore) lookupErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return models.PersistenceFailure(op, err)
}

func trendArg(t *models.Trend) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
