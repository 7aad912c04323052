package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicatePayment = errors.New("order group already exists for payment")

const pgUniqueViolation = "23505"

type Repo struct{ DB *pgxpool.Pool }

// InsertGroup: semua row satu group masuk dalam satu transaksi, atau tidak sama sekali.
// Kalau gateway_payment_id sudah dipakai group lain -> ErrDuplicatePayment.
func (r *Repo) InsertGroup(ctx context.Context, g Group) error {
	if len(g.Rows) == 0 {
		return ErrEmptyCart
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO order_groups(id, user_id, payment_method, gateway_order_id, gateway_payment_id, sub_total, total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		g.ID, g.UserID, string(g.PaymentMethod), g.GatewayOrderID, g.GatewayPaymentID, g.SubTotal, g.Total, g.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && g.GatewayPaymentID != "" {
			return fmt.Errorf("%w: %s", ErrDuplicatePayment, g.GatewayPaymentID)
		}
		return fmt.Errorf("insert order group: %w", err)
	}

	for _, row := range g.Rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO orders(order_id, group_id, user_id, product_id, product_name, product_images, unit_price, discount,
			                   quantity, payment_method, payment_status, gateway_order_id, gateway_payment_id, gateway_signature,
			                   delivery_address_id, sub_total, total, invoice_receipt, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
			row.OrderID, row.GroupID, row.UserID, row.Product.ProductID, row.Product.Name, row.Product.Images,
			row.Product.UnitPrice, row.Product.Discount, row.Quantity, string(row.PaymentMethod), string(row.PaymentStatus),
			row.GatewayOrderID, row.GatewayPaymentID, row.GatewaySignature, row.DeliveryAddressID,
			row.SubTotal, row.Total, row.InvoiceReceipt, row.CreatedAt, row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", row.OrderID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) ExistsForPayment(ctx context.Context, paymentID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE gateway_payment_id=$1)`, paymentID).Scan(&ok)
	return ok, err
}

// UpdatePaymentStatus hanya menyentuh row yang status-nya boleh transisi ke `to`;
// status yang sudah sama (atau lebih final) dibiarkan. Return jumlah row berubah.
func (r *Repo) UpdatePaymentStatus(ctx context.Context, paymentID string, to PaymentStatus) (int64, error) {
	from := Sources(to)
	if paymentID == "" || len(from) == 0 {
		return 0, nil
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$2, updated_at=now()
		WHERE gateway_payment_id=$1 AND payment_status = ANY($3)`,
		paymentID, string(to), from,
	)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

const rowColumns = `order_id, group_id, user_id, product_id, product_name, product_images, unit_price, discount, quantity,
	payment_method, payment_status, gateway_order_id, gateway_payment_id, gateway_signature, delivery_address_id,
	sub_total, total, invoice_receipt, created_at, updated_at`

func (r *Repo) ListByPayment(ctx context.Context, paymentID string) ([]Row, error) {
	return r.list(ctx, `SELECT `+rowColumns+` FROM orders WHERE gateway_payment_id=$1 ORDER BY order_id`, paymentID)
}

// ListByUser: terbaru dulu. Filter user wajib.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Row, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return r.list(ctx, `SELECT `+rowColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, order_id`, userID)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var (
			row            Row
			method, status string
		)
		if err := rows.Scan(&row.OrderID, &row.GroupID, &row.UserID, &row.Product.ProductID, &row.Product.Name,
			&row.Product.Images, &row.Product.UnitPrice, &row.Product.Discount, &row.Quantity, &method, &status,
			&row.GatewayOrderID, &row.GatewayPaymentID, &row.GatewaySignature, &row.DeliveryAddressID,
			&row.SubTotal, &row.Total, &row.InvoiceReceipt, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		row.PaymentMethod = PaymentMethod(method)
		row.PaymentStatus = PaymentStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}
