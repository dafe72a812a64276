// Package sync implements the batch reconciliation engine. Each batch runs
// in three phases: structural checks on the records alone, read-only
// resolution against stored state, and a single transaction applying every
// staged write. A batch with any rejected record writes nothing.
package sync

import (
	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/auth"
	"github.com/cliplabel/cliplabel-engine/pkg/config"
	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/repositories"
)

// Engine runs sync batches against one database. Read phases use
// repositories bound to the pool; the apply phase rebuilds them on the open
// transaction.
type Engine struct {
	store         database.Store
	repos         func(database.Querier) *repositories.Set
	verifiers     *VerifierRegistry
	bcryptCost    int
	answerWorkers int
	logger        *zap.Logger
}

// NewEngine creates a sync engine. A nil verifiers registry falls back to
// the built-in verification functions.
func NewEngine(store database.Store, verifiers *VerifierRegistry, cfg config.SyncConfig, logger *zap.Logger) *Engine {
	if verifiers == nil {
		verifiers = DefaultVerifiers()
	}
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = auth.DefaultBcryptCost
	}
	workers := cfg.AnswerWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		store:         store,
		repos:         repositories.NewSet,
		verifiers:     verifiers,
		bcryptCost:    cost,
		answerWorkers: workers,
		logger:        logger,
	}
}

func (e *Engine) logSummary(sum *Summary) {
	e.logger.Info("batch applied",
		zap.String("kind", sum.Kind),
		zap.Int("total", sum.Total),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("removed", sum.Removed),
		zap.Int("skipped", sum.Skipped))
}
