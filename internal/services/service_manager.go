package services

import (
	"log/slog"

	"github.com/SAP-F-2025/test-engine-service/internal/cache"
	"github.com/SAP-F-2025/test-engine-service/internal/events"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/SAP-F-2025/test-engine-service/internal/scoring"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
)

// ServiceManager exposes the engine's services to the transport layer
type ServiceManager interface {
	Session() SessionService
	Access() AccessService
	History() HistoryService
	Content() ContentService
}

// Dependencies collects what NewServiceManager wires together. Admins defaults to the profile table.
type Dependencies struct {
	Repo        repositories.Repository
	RemoteCache cache.CacheService
	CacheConfig ContentCacheConfig
	Admins      AdminChecker
	Publisher   events.EventPublisher
	Validator   *validator.Validator
	Logger      *slog.Logger
	Clock       Clock
}

type serviceManager struct {
	session SessionService
	access  AccessService
	history HistoryService
	content ContentService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Admins == nil {
		deps.Admins = NewProfileAdminChecker(deps.Repo.Profile())
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Clock != nil && deps.CacheConfig.Clock == nil {
		deps.CacheConfig.Clock = deps.Clock
	}

	content := NewContentService(deps.Repo, deps.RemoteCache, deps.CacheConfig, deps.Logger)
	access := NewAccessService(content, deps.Repo.Purchase(), deps.Admins, deps.Logger)

	var opts []SessionOption
	if deps.Clock != nil {
		opts = append(opts, WithClock(deps.Clock))
	}

	return &serviceManager{
		session: NewSessionService(deps.Repo, content, access, scoring.NewScorer(deps.Logger), deps.Publisher, deps.Validator, deps.Logger, opts...),
		access:  access,
		history: NewHistoryService(deps.Repo, content, deps.Logger),
		content: content,
	}
}

func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Access() AccessService   { return m.access }
func (m *serviceManager) History() HistoryService { return m.history }
func (m *serviceManager) Content() ContentService { return m.content }
