package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAttemptNotFound = errors.New("checkout attempt not found")

type AttemptRepo struct{ DB *pgxpool.Pool }

// Create idempotent: attempt yang sudah ada tidak ditimpa.
func (r *AttemptRepo) Create(ctx context.Context, a Attempt) error {
	lines := a.Cart
	if lines == nil {
		lines = []cart.Line{}
	}
	snapshot, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO checkout_attempts(id, kind, user_id, address_id, state, receipt, amount_minor, currency, total, cart_snapshot)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, string(a.Kind), a.UserID, a.AddressID, string(a.State), a.Receipt, a.AmountMinor, a.Currency, a.Total, snapshot,
	)
	return err
}

const attemptColumns = `id, kind, user_id, address_id, state, receipt, amount_minor, currency, total, cart_snapshot, last_error, created_at, updated_at`

func scanAttempt(row pgx.Row) (Attempt, error) {
	var (
		a           Attempt
		kind, state string
		snapshot    []byte
	)
	if err := row.Scan(&a.ID, &kind, &a.UserID, &a.AddressID, &state, &a.Receipt, &a.AmountMinor, &a.Currency,
		&a.Total, &snapshot, &a.LastError, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Attempt{}, err
	}
	a.Kind, a.State = Kind(kind), State(state)
	if len(snapshot) > 0 {
		var lines []cart.Line
		if err := json.Unmarshal(snapshot, &lines); err != nil {
			return Attempt{}, fmt.Errorf("decode cart snapshot: %w", err)
		}
		a.Cart = lines
	}
	return a, nil
}

func (r *AttemptRepo) Get(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(r.DB.QueryRow(ctx, `SELECT `+attemptColumns+` FROM checkout_attempts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

// Advance: pindah state hanya kalau transisi valid dari state sekarang.
// false = ditolak (state sudah lewat / attempt tidak ada).
func (r *AttemptRepo) Advance(ctx context.Context, id string, to State, note string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE checkout_attempts
		SET state=$2, last_error=CASE WHEN $3::text = '' THEN last_error ELSE $3::text END, updated_at=now()
		WHERE id=$1 AND state = ANY($4)`,
		id, string(to), note, sourcesOf(to),
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Note mencatat error terakhir tanpa mengubah state.
func (r *AttemptRepo) Note(ctx context.Context, id, note string) error {
	_, err := r.DB.Exec(ctx, `UPDATE checkout_attempts SET last_error=$2, updated_at=now() WHERE id=$1`, id, note)
	return err
}

// ListUncleared: order sudah jadi tapi cart belum terkonfirmasi bersih sejak `before`.
// Semua kind, termasuk COD.
func (r *AttemptRepo) ListUncleared(ctx context.Context, before time.Time, limit int) ([]Attempt, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+attemptColumns+` FROM checkout_attempts
		WHERE state=$1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`,
		string(StateMaterialized), before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListStale: attempt online yang belum selesai dan tidak bergerak sejak `before`.
func (r *AttemptRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]Attempt, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+attemptColumns+` FROM checkout_attempts
		WHERE kind=$1 AND state = ANY($2) AND updated_at < $3
		ORDER BY created_at
		LIMIT $4`,
		string(KindOnline), []string{string(StateAwaitingGateway), string(StateVerified)}, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
