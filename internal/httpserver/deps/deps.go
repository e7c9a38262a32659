package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/engine"
	"github.com/andamento/andamento/internal/logger"
	redisstore "github.com/andamento/andamento/internal/store/redis"
)

// CaseStore is the storage surface the handlers use. The Redis store
// implements it; handler tests plug in an in-memory fake.
type CaseStore interface {
	engine.Gateway
	ListAll(ctx context.Context) ([]*domain.Case, error)
	ListPendingNumbers(ctx context.Context) ([]string, error)
	DeleteByNumbers(ctx context.Context, numbers []string) (int64, error)
	DeleteHistoryEntries(ctx context.Context, refs []redisstore.HistoryRef) (int64, error)
	MarkReviewed(ctx context.Context, number string) (bool, error)
	Summaries(ctx context.Context, number string) ([]domain.Summary, bool, error)
	AppendSummary(ctx context.Context, number string, summary domain.Summary) error
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Store  CaseStore      // case document storage
	Engine *engine.Engine // reconciliation engine behind the intake endpoint

	RedisClient *redis.Client // readiness probe only

	TrustProxy         bool // true if running behind a trusted reverse proxy
	IntakeBurst        int  // rate limit bucket size for /processos/atualizar
	IntakeRefillPerMin int  // rate limit refill per IP per minute

	ReloadTrigger chan struct{} // keyword rules reload trigger (nil if no keywords file)
}
