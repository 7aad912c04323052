package address

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("address not found")

type Address struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	Country     string    `json:"country"`
	Mobile      string    `json:"mobile"`
	Status      bool      `json:"status"` // false = soft-deleted
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Usable: milik user dan masih aktif.
func (a Address) Usable(userID string) bool {
	return a.UserID == userID && a.Status
}

type Repo struct{ DB *pgxpool.Pool }

const columns = `id, user_id, address_line, city, state, pincode, country, mobile, status, created_at, updated_at`

func scan(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.AddressLine, &a.City, &a.State, &a.Pincode, &a.Country, &a.Mobile, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Get tidak memfilter status; alamat non-aktif tetap bisa di-resolve utk order lama.
func (r *Repo) Get(ctx context.Context, id string) (Address, error) {
	a, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM addresses WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	return a, err
}

func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Address, error) {
	out := make(map[string]Address, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM addresses WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// Disable = soft delete. Order yang sudah mereferensikan alamat ini tidak disentuh.
func (r *Repo) Disable(ctx context.Context, userID, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE addresses SET status=FALSE, updated_at=now() WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
