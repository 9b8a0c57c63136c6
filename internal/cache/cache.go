package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"

	"lumea_back_end/internal/database"
)

var ctx = context.Background()

// --- Cache générique ---

// SetCache stocke une valeur dans le cache
func SetCache(key string, value interface{}, duration time.Duration) error {
	return database.Redis.Set(ctx, key, value, duration).Err()
}

// GetCache récupère une valeur du cache ("" si absente)
func GetCache(key string) (string, error) {
	val, err := database.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// DeleteCache supprime une clé du cache
func DeleteCache(key string) error {
	return database.Redis.Del(ctx, key).Err()
}

// --- Vues commande / demandes de reversal ---

func OrderViewKey(orderID gocql.UUID) string {
	return fmt.Sprintf("order_view:%s", orderID)
}

func RequestsViewKey(orderID gocql.UUID) string {
	return fmt.Sprintf("reversal_requests:%s", orderID)
}

// Invalidator purge les vues mises en cache d'une commande après une
// transition de reversal (approbation ou rejet).
type Invalidator struct{}

func (Invalidator) InvalidateOrder(orderID gocql.UUID) {
	if err := database.Redis.Del(ctx, OrderViewKey(orderID), RequestsViewKey(orderID)).Err(); err != nil {
		log.Printf("⚠️ Erreur invalidation cache commande %s: %v", orderID, err)
	}
}
