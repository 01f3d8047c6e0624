package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
)

// dbPool is the subset of pgxpool.Pool the storage uses; tests substitute a
// pgxmock pool through it.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// newPgxPool is swapped out in tests to substitute a mock pool.
var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (dbPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   dbPool
	logger *slog.Logger
}

type userRepository struct {
	storage *Storage
}

type purchaseRepository struct {
	storage *Storage
}

type promoCodeRepository struct {
	storage *Storage
}

type catalogRepository struct {
	storage *Storage
}

type orderCounterRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Purchases() repository.PurchaseRepository {
	return &purchaseRepository{storage: s}
}

func (s *Storage) PromoCodes() repository.PromoCodeRepository {
	return &promoCodeRepository{storage: s}
}

func (s *Storage) Catalog() repository.CatalogRepository {
	return &catalogRepository{storage: s}
}

func (s *Storage) OrderCounters() repository.OrderCounterRepository {
	return &orderCounterRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS programs (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            price BIGINT NOT NULL,
            class_rep_discount BIGINT NOT NULL DEFAULT 0,
            early_bird_discount BIGINT NOT NULL DEFAULT 0,
            early_bird_until TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS events (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            price BIGINT NOT NULL,
            is_free BOOLEAN NOT NULL DEFAULT FALSE,
            organizer_id BIGINT NOT NULL,
            co_organizer_ids BIGINT[] NOT NULL DEFAULT '{}',
            program_ids TEXT[] NOT NULL DEFAULT '{}',
            starts_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            discount_amount BIGINT NOT NULL DEFAULT 0,
            discount_percent BIGINT NOT NULL DEFAULT 0,
            is_general BOOLEAN NOT NULL DEFAULT FALSE,
            owner_id BIGINT,
            allowed_targets TEXT[] NOT NULL DEFAULT '{}',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            is_used BOOLEAN NOT NULL DEFAULT FALSE,
            used_at TIMESTAMPTZ,
            used_for_purchase TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS purchases (
            id TEXT PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            kind TEXT NOT NULL,
            program_id TEXT,
            event_id TEXT,
            order_number TEXT UNIQUE NOT NULL,
            full_price BIGINT NOT NULL,
            class_rep_discount BIGINT NOT NULL DEFAULT 0,
            early_bird_discount BIGINT NOT NULL DEFAULT 0,
            promo_discount_amount BIGINT NOT NULL DEFAULT 0,
            promo_discount_percent BIGINT NOT NULL DEFAULT 0,
            final_price BIGINT NOT NULL,
            promo_code TEXT,
            status TEXT NOT NULL,
            gateway_session_id TEXT,
            gateway_payment_intent_id TEXT,
            gateway_refund_id TEXT,
            refund_initiated_at TIMESTAMPTZ,
            refunded_at TIMESTAMPTZ,
            refund_failure_reason TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_counters (
            day TEXT PRIMARY KEY,
            last_seq BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS locks (
            key TEXT PRIMARY KEY,
            expires_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- UserRepository implementation ---

func (r *userRepository) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	const query = `INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id, created_at`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, login, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	u.Login = login
	u.PasswordHash = passwordHash
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	const query = `SELECT id, login, password_hash, is_admin, created_at FROM users WHERE login=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, login, password_hash, is_admin, created_at FROM users WHERE id=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- PurchaseRepository implementation ---

const purchaseColumns = `id, user_id, kind, program_id, event_id, order_number,
    full_price, class_rep_discount, early_bird_discount, promo_discount_amount,
    promo_discount_percent, final_price, promo_code, status, gateway_session_id,
    gateway_payment_intent_id, gateway_refund_id, refund_initiated_at,
    refunded_at, refund_failure_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (*model.Purchase, error) {
	var p model.Purchase
	err := row.Scan(
		&p.ID, &p.UserID, &p.Kind, &p.ProgramID, &p.EventID, &p.OrderNumber,
		&p.FullPrice, &p.ClassRepDiscount, &p.EarlyBirdDiscount, &p.PromoDiscountAmount,
		&p.PromoDiscountPercent, &p.FinalPrice, &p.PromoCode, &p.Status, &p.GatewaySessionID,
		&p.GatewayPaymentIntentID, &p.GatewayRefundID, &p.RefundInitiatedAt,
		&p.RefundedAt, &p.RefundFailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) Create(ctx context.Context, p *model.Purchase) error {
	const query = `INSERT INTO purchases (
            id, user_id, kind, program_id, event_id, order_number,
            full_price, class_rep_discount, early_bird_discount,
            promo_discount_amount, promo_discount_percent, final_price,
            promo_code, status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING created_at, updated_at`
	err := r.storage.pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.Kind, p.ProgramID, p.EventID, p.OrderNumber,
		p.FullPrice, p.ClassRepDiscount, p.EarlyBirdDiscount,
		p.PromoDiscountAmount, p.PromoDiscountPercent, p.FinalPrice,
		p.PromoCode, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id string) (*model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1`
	p, err := scanPurchase(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepository) ListByUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *purchaseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM purchases WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}

func (r *purchaseRepository) FindPending(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (*model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases
              WHERE user_id=$1 AND kind=$2 AND status='pending'
                AND (program_id=$3 OR event_id=$3)
              ORDER BY created_at DESC LIMIT 1`
	p, err := scanPurchase(r.storage.pool.QueryRow(ctx, query, userID, kind, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepository) HasCompleted(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (bool, error) {
	const query = `SELECT EXISTS (
            SELECT 1 FROM purchases
            WHERE user_id=$1 AND kind=$2 AND status='completed'
              AND (program_id=$3 OR event_id=$3)
        )`
	var exists bool
	if err := r.storage.pool.QueryRow(ctx, query, userID, kind, targetID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *purchaseRepository) HasCompletedForPrograms(ctx context.Context, userID int64, programIDs []string) (bool, error) {
	if len(programIDs) == 0 {
		return false, nil
	}
	const query = `SELECT EXISTS (
            SELECT 1 FROM purchases
            WHERE user_id=$1 AND kind='program' AND status='completed'
              AND program_id = ANY($2)
        )`
	var exists bool
	if err := r.storage.pool.QueryRow(ctx, query, userID, programIDs).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *purchaseRepository) SetGatewaySession(ctx context.Context, id, sessionID string) error {
	const query = `UPDATE purchases SET gateway_session_id=$1, updated_at=NOW() WHERE id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, sessionID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// Complete moves a pending purchase to completed and consumes its promo code
// in the same transaction. Returns false when the purchase is not pending.
func (r *purchaseRepository) Complete(ctx context.Context, id, paymentIntentID string) (bool, error) {
	var applied bool
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE purchases
                       SET status='completed', gateway_payment_intent_id=$1, updated_at=NOW()
                       WHERE id=$2 AND status='pending'
                       RETURNING promo_code`
		var promoCode *string
		if err := tx.QueryRow(ctx, query, paymentIntentID, id).Scan(&promoCode); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		applied = true
		if promoCode != nil {
			return r.consumePromoTx(ctx, tx, *promoCode, id)
		}
		return nil
	})
	return applied, err
}

func (r *purchaseRepository) Fail(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE purchases SET status='failed', updated_at=NOW()
                   WHERE id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *purchaseRepository) MarkRefundProcessing(ctx context.Context, id, refundID string) (bool, error) {
	const query = `UPDATE purchases
                   SET status='refund_processing', gateway_refund_id=$1,
                       refund_initiated_at=NOW(), updated_at=NOW()
                   WHERE id=$2 AND status='completed'`
	tag, err := r.storage.pool.Exec(ctx, query, refundID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRefunded moves a purchase from refund_processing to refunded and
// restores its promo code in the same transaction.
func (r *purchaseRepository) MarkRefunded(ctx context.Context, id string) (bool, error) {
	var applied bool
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE purchases
                       SET status='refunded', refunded_at=NOW(), updated_at=NOW()
                       WHERE id=$1 AND status='refund_processing'
                       RETURNING promo_code`
		var promoCode *string
		if err := tx.QueryRow(ctx, query, id).Scan(&promoCode); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		applied = true
		if promoCode != nil {
			return restorePromoTx(ctx, tx, *promoCode, id)
		}
		return nil
	})
	return applied, err
}

func (r *purchaseRepository) MarkRefundFailed(ctx context.Context, id, reason string) (bool, error) {
	const query = `UPDATE purchases
                   SET status='refund_failed', refund_failure_reason=$1, updated_at=NOW()
                   WHERE id=$2 AND status='refund_processing'`
	tag, err := r.storage.pool.Exec(ctx, query, reason, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevertRefundToCompleted handles the gateway-canceled refund: the purchase
// becomes completed again and the promo code stays consumed.
func (r *purchaseRepository) RevertRefundToCompleted(ctx context.Context, id, reason string) (bool, error) {
	const query = `UPDATE purchases
                   SET status='completed', refund_failure_reason=$1, updated_at=NOW()
                   WHERE id=$2 AND status='refund_processing'`
	tag, err := r.storage.pool.Exec(ctx, query, reason, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *purchaseRepository) SelectStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases
              WHERE status='pending' AND created_at < $1
              ORDER BY created_at LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// consumePromoTx marks the code used for exactly this purchase. The is_used
// guard keeps a code that slipped past validation into two pending checkouts
// from being consumed twice; the losing completion still commits, the
// conflict is only flagged.
func (r *purchaseRepository) consumePromoTx(ctx context.Context, tx pgx.Tx, code, purchaseID string) error {
	const query = `UPDATE promo_codes
                   SET is_used=TRUE, used_at=NOW(), used_for_purchase=$1
                   WHERE code=$2 AND is_used=FALSE`
	tag, err := tx.Exec(ctx, query, purchaseID, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		r.storage.logger.Warn("promo code already consumed by another purchase",
			slog.String("code", code),
			slog.String("purchase_id", purchaseID),
		)
	}
	return nil
}

// restorePromoTx clears consumption only when the code is still held by the
// refunded purchase, so restoring one purchase never frees a code another
// completed purchase consumed in the meantime.
func restorePromoTx(ctx context.Context, tx pgx.Tx, code, purchaseID string) error {
	const query = `UPDATE promo_codes
                   SET is_used=FALSE, used_at=NULL, used_for_purchase=NULL
                   WHERE code=$1 AND used_for_purchase=$2`
	_, err := tx.Exec(ctx, query, code, purchaseID)
	return err
}

// --- PromoCodeRepository implementation ---

func (r *promoCodeRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	const query = `SELECT id, code, discount_amount, discount_percent, is_general,
                          owner_id, allowed_targets, is_active, is_used, used_at,
                          used_for_purchase, created_at
                   FROM promo_codes WHERE code=$1`
	var p model.PromoCode
	err := r.storage.pool.QueryRow(ctx, query, code).Scan(
		&p.ID, &p.Code, &p.DiscountAmount, &p.DiscountPercent, &p.IsGeneral,
		&p.OwnerID, &p.AllowedTargets, &p.IsActive, &p.IsUsed, &p.UsedAt,
		&p.UsedForPurchase, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// --- CatalogRepository implementation ---

func (r *catalogRepository) GetProgram(ctx context.Context, id string) (*model.Program, error) {
	const query = `SELECT id, name, price, class_rep_discount, early_bird_discount,
                          early_bird_until, created_at
                   FROM programs WHERE id=$1`
	var p model.Program
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.ClassRepDiscount, &p.EarlyBirdDiscount,
		&p.EarlyBirdUntil, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	const query = `SELECT id, name, price, is_free, organizer_id, co_organizer_ids,
                          program_ids, starts_at, created_at
                   FROM events WHERE id=$1`
	var e model.Event
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Price, &e.IsFree, &e.OrganizerID, &e.CoOrganizerIDs,
		&e.ProgramIDs, &e.StartsAt, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// --- OrderCounterRepository implementation ---

func (r *orderCounterRepository) NextSequence(ctx context.Context, day string) (int64, error) {
	const query = `INSERT INTO order_counters (day, last_seq) VALUES ($1, 1)
                   ON CONFLICT (day) DO UPDATE SET last_seq = order_counters.last_seq + 1
                   RETURNING last_seq`
	var seq int64
	if err := r.storage.pool.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
