package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/coupon"
	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

var _ storage.Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	if err := s.db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            user_id TEXT,
            items JSONB NOT NULL,
            address JSONB NOT NULL,
            payment_method TEXT NOT NULL,
            total_amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            coupon_id TEXT NOT NULL DEFAULT '',
            razorpay_order_id TEXT NOT NULL DEFAULT '',
            razorpay_payment_id TEXT NOT NULL DEFAULT '',
            shipment_id TEXT NOT NULL DEFAULT '',
            awb_code TEXT NOT NULL DEFAULT '',
            shipping_response JSONB,
            fulfillment_attempts INT NOT NULL DEFAULT 0,
            fulfillment_error TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS coupons (
            id TEXT PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            discount_type TEXT NOT NULL,
            discount_value DOUBLE PRECISION NOT NULL,
            max_uses INT NOT NULL,
            used_count INT NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	return err
}

func (s *PostgresStorage) CreateUser(ctx context.Context, u *user.User) error {
	u.ID = uuid.NewString()
	q := `INSERT INTO users (id,name,email,password_hash,created_at) VALUES($1,$2,$3,$4,$5)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	return translate(err)
}

func (s *PostgresStorage) findUser(ctx context.Context, where string, arg any) (*user.User, error) {
	u := &user.User{}
	q := `SELECT id,name,email,password_hash,created_at FROM users WHERE ` + where + `=$1`
	if err := s.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *PostgresStorage) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *PostgresStorage) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	return s.findUser(ctx, "id", id)
}

const orderColumns = `id, user_id, items, address, payment_method, total_amount, status, coupon_id,
    razorpay_order_id, razorpay_payment_id, shipment_id, awb_code, shipping_response,
    fulfillment_attempts, fulfillment_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o        order.Order
		userID   sql.NullString
		items    []byte
		address  []byte
		shipping []byte
	)
	if err := row.Scan(
		&o.ID, &userID, &items, &address, &o.PaymentMethod, &o.TotalAmount, &o.Status, &o.CouponID,
		&o.RazorpayOrderID, &o.RazorpayPaymentID, &o.ShipmentID, &o.AWBCode, &shipping,
		&o.FulfillmentAttempts, &o.FulfillmentError, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.UserID = userID.String
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingResponse); err != nil {
			return nil, fmt.Errorf("decode shipping response: %w", err)
		}
	}
	return &o, nil
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	o.ID = uuid.NewString()
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	address, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	var userID sql.NullString
	if o.UserID != "" {
		userID = sql.NullString{String: o.UserID, Valid: true}
	}
	q := `
        INSERT INTO orders (id, user_id, items, address, payment_method, total_amount, status, coupon_id,
            razorpay_order_id, razorpay_payment_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = s.db.ExecContext(ctx, q,
		o.ID, userID, items, address, o.PaymentMethod, o.TotalAmount, o.Status, o.CouponID,
		o.RazorpayOrderID, o.RazorpayPaymentID, o.CreatedAt, o.UpdatedAt,
	)
	return translate(err)
}

func (s *PostgresStorage) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return o, nil
}

func (s *PostgresStorage) listOrders(ctx context.Context, q string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return s.listOrders(ctx, q, userID)
}

func (s *PostgresStorage) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return s.listOrders(ctx, q)
}

func (s *PostgresStorage) ListOrdersAwaitingShipment(ctx context.Context, maxAttempts int) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + `
        FROM orders
        WHERE status IN ('Pending','Paid') AND shipment_id = '' AND fulfillment_attempts < $1
        ORDER BY created_at
        LIMIT 100`
	return s.listOrders(ctx, q, maxAttempts)
}

func (s *PostgresStorage) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, id string, status order.OrderStatus) error {
	return s.exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
}

func (s *PostgresStorage) SaveShipment(ctx context.Context, id string, sh *order.Shipment) error {
	resp, err := json.Marshal(sh.Response)
	if err != nil {
		return fmt.Errorf("encode shipping response: %w", err)
	}
	const q = `
        UPDATE orders
        SET shipment_id = $1,
            awb_code = $2,
            shipping_response = $3,
            status = $4,
            fulfillment_error = '',
            updated_at = $5
        WHERE id = $6`
	return s.exec(ctx, q, sh.ShipmentID, sh.AWBCode, resp, order.StatusReadyForShipping, time.Now().UTC(), id)
}

func (s *PostgresStorage) RecordFulfillmentFailure(ctx context.Context, id string, reason string) (int, error) {
	const q = `
        UPDATE orders
        SET fulfillment_attempts = fulfillment_attempts + 1,
            fulfillment_error = $1,
            updated_at = $2
        WHERE id = $3
        RETURNING fulfillment_attempts`
	var attempts int
	if err := s.db.QueryRowContext(ctx, q, reason, time.Now().UTC(), id).Scan(&attempts); err != nil {
		return 0, translate(err)
	}
	return attempts, nil
}

func (s *PostgresStorage) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	c.ID = uuid.NewString()
	q := `
        INSERT INTO coupons (id, code, discount_type, discount_value, max_uses, used_count, active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, c.MaxUses, c.UsedCount, c.Active, c.CreatedAt)
	return translate(err)
}

const couponColumns = `id, code, discount_type, discount_value, max_uses, used_count, active, created_at`

func scanCoupon(row rowScanner) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue,
		&c.MaxUses, &c.UsedCount, &c.Active, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStorage) FindActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND active`
	c, err := scanCoupon(s.db.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (s *PostgresStorage) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []coupon.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) RedeemCoupon(ctx context.Context, id string) error {
	const q = `
        UPDATE coupons
        SET used_count = used_count + 1
        WHERE id = $1 AND active AND used_count < max_uses`
	err := s.exec(ctx, q, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ErrConditionFailed
	}
	return err
}
