package app

import (
	"context"

	"github.com/datallboy/jarview/internal/domain"
	"github.com/datallboy/jarview/internal/infra/config"
	"github.com/datallboy/jarview/internal/infra/logger"
)

type Dispatcher interface {
	// This allows the api to queue requests without importing the dispatch package
	Handle(ctx context.Context, req domain.Request)
	Active() (string, bool)
	Pending() int
}

type History interface {
	Recent(ctx context.Context, limit int) ([]*domain.RequestRecord, error)
	Get(ctx context.Context, id string) (*domain.RequestRecord, error)
}

// Context hold the core environment and shared resources for jarview.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for services to use
	Dispatcher Dispatcher
	History    History
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
