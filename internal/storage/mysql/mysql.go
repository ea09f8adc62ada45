// Package mysql is the MySQL storage gateway, built on gorm.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var (
	_ ports.TransactionStore  = (*Repository)(nil)
	_ ports.TransactionReader = (*Repository)(nil)
	_ ports.Pinger            = (*Repository)(nil)
)

// transactionRow is the gorm model of the transactions table. Amount is text
// so the submitted scale is returned unchanged.
type transactionRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Description string    `gorm:"type:text;not null"`
	Amount      string    `gorm:"type:text;not null"`
	Type        string    `gorm:"type:varchar(7);not null;index"`
	Category    string    `gorm:"type:text;not null"`
	Date        time.Time `gorm:"type:date;not null"`
	CreatedAt   time.Time
}

func (transactionRow) TableName() string {
	return "transactions"
}

// PoolConfig tunes the database/sql pool behind gorm.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

type Repository struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the transactions table.
func Open(dsn string, pool PoolConfig) (*Repository, error) {
	db, err := gorm.Open(mysql.Open(normalizeDSN(dsn)), &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				LogLevel:      logger.Warn,
				SlowThreshold: time.Second,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&transactionRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate transactions table: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Save(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := toRow(t)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to MySQL", "id", row.ID, "type", row.Type, "amount", row.Amount)
	return fromRow(row)
}

func (r *Repository) FindAll(ctx context.Context) ([]core.Transaction, error) {
	var rows []transactionRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return fromRows(rows)
}

func (r *Repository) FindByType(ctx context.Context, kind core.TransactionType) ([]core.Transaction, error) {
	var rows []transactionRow
	if err := r.db.WithContext(ctx).Where("type = ?", string(kind)).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions of type %s: %w", kind, err)
	}
	return fromRows(rows)
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&transactionRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete transaction %d: %w", id, res.Error)
	}
	slog.InfoContext(ctx, "Transaction delete executed", "id", id, "rows_affected", res.RowsAffected)
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return fromRow(row)
}

func toRow(t core.Transaction) transactionRow {
	return transactionRow{
		Description: t.Description,
		Amount:      core.FormatAmount(t.Amount),
		Type:        string(t.Type),
		Category:    t.Category,
		Date:        t.Date.Time,
	}
}

func fromRow(row transactionRow) (core.Transaction, error) {
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d amount %q: %w", row.ID, row.Amount, err)
	}
	y, m, d := row.Date.Date()
	return core.Transaction{
		ID:          row.ID,
		Description: row.Description,
		Amount:      amount,
		Type:        core.TransactionType(row.Type),
		Category:    row.Category,
		Date:        core.NewDate(y, int(m), d),
	}, nil
}

func fromRows(rows []transactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// normalizeDSN makes sure DATE columns scan into time.Time.
func normalizeDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
