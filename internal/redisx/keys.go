package redisx

import "time"

const (
	// Open cart per meja/comanda: hash cart:{ref} -> {product_id: line json}
	KeyCart = "cart:%s"

	// Idempotency posting ke caixa: idem:register:post:{idempotency_key} -> register_id
	KeyIdemRegisterPost = "idem:register:post:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCart        = 12 * time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	// marker "sedang diproses" sebelum hasilnya tercatat
	TTLInProgress = 30 * time.Second
)
