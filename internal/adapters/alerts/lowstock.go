package alerts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/tiendahair/internal/domain"
)

// Notifier posts low-stock alerts to Telegram. The per-SKU cooldown lives in
// Redis so every instance of the service shares the same last-sent mark
// instead of each keeping its own in memory.
type Notifier struct {
	rdb      *redis.Client
	token    string
	chatIDs  []string
	cooldown time.Duration
}

func New(rdb *redis.Client, cooldown time.Duration) *Notifier {
	rawIDs := os.Getenv("TELEGRAM_CHAT_IDS")
	if strings.TrimSpace(rawIDs) == "" {
		rawIDs = os.Getenv("TELEGRAM_CHAT_ID")
	}
	ids := []string{}
	for _, part := range strings.Split(rawIDs, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return &Notifier{
		rdb:      rdb,
		token:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		chatIDs:  ids,
		cooldown: cooldown,
	}
}

func (n *Notifier) LowStock(ctx context.Context, sku *domain.SKU, balanceG int) {
	if n.token == "" || len(n.chatIDs) == 0 {
		return
	}
	if n.rdb == nil {
		log.Warn().Str("sku_code", sku.Code).Msg("low-stock alert skipped: redis not configured")
		return
	}

	key := "lowstock:sent:" + sku.Code
	ok, err := n.rdb.SetNX(ctx, key, time.Now().Format(time.RFC3339), n.cooldown).Result()
	if err != nil {
		log.Warn().Err(err).Str("sku_code", sku.Code).Msg("low-stock cooldown check failed")
		return
	}
	if !ok {
		// Another instance (or an earlier movement) already alerted within
		// the cooldown window.
		return
	}

	var b strings.Builder
	b.WriteString("STOCK BAJO\n")
	fmt.Fprintf(&b, "SKU: %s\n", sku.Code)
	fmt.Fprintf(&b, "Categoría: %s / %s — %d cm\n", sku.Category, sku.Tier, sku.LengthCM)
	fmt.Fprintf(&b, "Disponible: %d g\n", balanceG)

	if err := n.send(b.String()); err != nil {
		log.Warn().Err(err).Str("sku_code", sku.Code).Msg("telegram notif fallo")
		return
	}
	log.Info().Str("sku_code", sku.Code).Int("balance_g", balanceG).Msg("low-stock alert sent")
}

func (n *Notifier) send(text string) error {
	apiURL := "https://api.telegram.org/bot" + n.token + "/sendMessage"
	var lastErr error
	for _, id := range n.chatIDs {
		form := url.Values{}
		form.Set("chat_id", id)
		form.Set("text", text)
		form.Set("disable_web_page_preview", "1")
		resp, err := http.PostForm(apiURL, form)
		if err != nil {
			lastErr = err
			continue
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(resp.Body)
				lastErr = fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(body))
			}
		}()
	}
	return lastErr
}
