package abuse

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"lumea_back_end/internal/database"
)

// Guard est le collaborateur anti-abus partagé par tout le storefront :
// registre des IP bannies et fenêtres de rate limit dans Redis. Les
// compteurs sont partagés entre instances, jamais en mémoire process.
type Guard struct {
	rdb *redis.Client
}

func NewGuard() *Guard {
	return &Guard{rdb: database.Redis}
}

// IsBanned vérifie si une IP est bannie et retourne le temps restant du ban.
func (g *Guard) IsBanned(ctx context.Context, ip string) (bool, time.Duration) {
	key := "banned_ip:" + ip
	exists, err := g.rdb.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification ban IP %s: %v", ip, err)
		return false, 0
	}
	if exists == 0 {
		return false, 0
	}
	return true, g.rdb.TTL(ctx, key).Val()
}

// Check compare le compteur d'une fenêtre à sa limite sans l'incrémenter.
// Retourne le délai avant réinitialisation quand la limite est atteinte.
func (g *Guard) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	count, err := g.rdb.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		log.Printf("⚠️ Erreur lecture rate limit %s: %v", key, err)
		return true, 0
	}
	if count >= limit {
		ttl := g.rdb.TTL(ctx, key).Val()
		if ttl <= 0 {
			ttl = window
		}
		return false, ttl
	}
	return true, 0
}

// Record comptabilise une action réussie dans la fenêtre : les prochains
// Check la verront. INCR+EXPIRE en pipeline, sûr sous concurrence.
func (g *Guard) Record(ctx context.Context, key string, window time.Duration) {
	pipe := g.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ Erreur enregistrement action %s: %v", key, err)
	}
}
