package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/garageops/reserva/internal/domain"
)

type Config struct {
	Addr        string
	DatabaseURL string

	// TicketInventorySize is the fixed upper bound of the numbered ticket
	// range, read once at startup. Tickets are numbered 1..N.
	TicketInventorySize int

	Currency string

	// CommitTimeout bounds each single-unit ledger commit attempt.
	CommitTimeout time.Duration

	KafkaBrokers  []string
	KafkaTopic    string
	CalendarTopic string

	ReceiptBucket string
	ReceiptPrefix string
}

const (
	defaultAddr          = ":8070"
	defaultInventorySize = 2000
	defaultCurrency      = "EUR"
	defaultCommitTimeout = 5 * time.Second
	defaultKafkaTopic    = "reserva.claims"
	defaultCalendarTopic = "reserva.calendar"
)

// Load reads configuration from the environment. The ticket inventory bound
// may arrive via TICKET_INVENTORY_SIZE or the legacy TICKET_GRID_SIZE; when
// both are set they must agree, otherwise startup fails rather than picking
// one side silently.
func Load() (Config, error) {
	cfg := Config{
		Addr:          getEnv("RESERVA_ADDR", defaultAddr),
		DatabaseURL:   firstNonEmpty(os.Getenv("RESERVA_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		Currency:      getEnv("RESERVA_CURRENCY", defaultCurrency),
		CommitTimeout: getDuration("RESERVA_COMMIT_TIMEOUT", defaultCommitTimeout),
		KafkaBrokers:  parseCSV(os.Getenv("RESERVA_KAFKA_BROKERS")),
		KafkaTopic:    getEnv("RESERVA_KAFKA_TOPIC", defaultKafkaTopic),
		CalendarTopic: getEnv("RESERVA_CALENDAR_TOPIC", defaultCalendarTopic),
		ReceiptBucket: os.Getenv("RESERVA_RECEIPT_BUCKET"),
		ReceiptPrefix: getEnv("RESERVA_RECEIPT_PREFIX", "receipts"),
	}

	size, err := inventorySize()
	if err != nil {
		return Config{}, err
	}
	cfg.TicketInventorySize = size

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or RESERVA_DATABASE_URL required")
	}
	return cfg, nil
}

func inventorySize() (int, error) {
	primary, hasPrimary, err := getIntStrict("TICKET_INVENTORY_SIZE")
	if err != nil {
		return 0, err
	}
	legacy, hasLegacy, err := getIntStrict("TICKET_GRID_SIZE")
	if err != nil {
		return 0, err
	}
	switch {
	case hasPrimary && hasLegacy && primary != legacy:
		return 0, fmt.Errorf("%w: TICKET_INVENTORY_SIZE=%d vs TICKET_GRID_SIZE=%d",
			domain.ErrInventoryMismatch, primary, legacy)
	case hasPrimary:
		return primary, nil
	case hasLegacy:
		return legacy, nil
	default:
		return defaultInventorySize, nil
	}
}

func getIntStrict(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid int for %s: %q", key, raw)
	}
	if v < 1 {
		return 0, false, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, true, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
