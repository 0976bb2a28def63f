// Package ingest wires the ingestion bounded context: repositories, alias
// resolver, parser registry, service and HTTP handler.
package ingest

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingsync_backend/internal/channelmap"
	apphttp "bookingsync_backend/internal/http"
	"bookingsync_backend/internal/ingest/alias"
	"bookingsync_backend/internal/ingest/handler"
	"bookingsync_backend/internal/ingest/parse"
	"bookingsync_backend/internal/ingest/repository"
	"bookingsync_backend/internal/ingest/service"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/platform/config"
	platformevents "bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
	"bookingsync_backend/platform/validator"
)

// Module is the ingest bounded context.
type Module struct {
	svc      *service.Service
	handler  *handler.Handler
	resolver *alias.Resolver
}

// NewModule assembles the context. tasks may be nil when no queue is
// configured; archiver may be a nil archiver when storage is off.
func NewModule(
	pool *pgxpool.Pool,
	source mail.Source,
	archiver service.Archiver,
	tasks handler.TaskEnqueuer,
	bus platformevents.Bus,
	cfg interface {
		config.IngestConfig
	},
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	channels, err := channelmap.Load(cfg.GetChannelMapPath())
	if err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	aliasRepo := alias.NewRepository(pool)
	resolver := alias.NewResolver(aliasRepo, log, cfg.GetAliasCacheTTL())
	registry := parse.Default(log)

	svc := service.New(repo, source, registry, resolver, channels, archiver, bus, log, service.Options{
		BackfillPageSize: cfg.GetBackfillPageSize(),
	})

	return &Module{
		svc:      svc,
		handler:  handler.New(svc, aliasRepo, resolver, tasks, val, log),
		resolver: resolver,
	}, nil
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "ingest" }

// RegisterRoutes implements apphttp.Module.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Service exposes the ingestion service for the scheduler worker and CLIs.
func (m *Module) Service() *service.Service { return m.svc }
