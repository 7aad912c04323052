package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper: shortcut idempotency. DB tetap jadi kebenaran, jadi Seen yang
// salah (mis. redis down) cukup berarti event diproses ulang.
type Deduper struct {
	Client redis.Cmdable
	Scope  string
}

func (d *Deduper) key(id string) string { return fmt.Sprintf(KeyDedup, d.Scope, id) }

func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return Exists(ctx, d.Client, d.key(id))
}

// Mark dipanggil setelah proses sukses, bukan sebelum: kalau proses gagal,
// retry dari gateway/kafka harus tetap lewat.
func (d *Deduper) Mark(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return d.Client.Set(ctx, d.key(id), "1", TTLDedup).Err()
}
