// Package bootstrap assembles repositories and services for the server and
// the admin CLI.
package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/events"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/repository"
	"github.com/fieldops/maintenance-service/internal/repository/memstore"
	"github.com/fieldops/maintenance-service/internal/service"
)

// Repositories groups every persistence contract.
type Repositories struct {
	Tickets       repository.TicketStore
	Equipment     repository.EquipmentRepository
	Reports       repository.ServiceReportRepository
	Comments      repository.CommentRepository
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
}

// PostgresRepositories returns pgx-backed repositories.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Tickets:       repository.NewTicketStore(pool),
		Equipment:     repository.NewEquipmentRepository(pool),
		Reports:       repository.NewServiceReportRepository(pool),
		Comments:      repository.NewCommentRepository(pool),
		Users:         repository.NewUserRepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
	}
}

// MemoryRepositories returns repositories backed by one in-process store.
func MemoryRepositories() Repositories {
	store := memstore.New()
	return Repositories{
		Tickets:       store.Tickets(),
		Equipment:     store.Equipment(),
		Reports:       store.Reports(),
		Comments:      store.Comments(),
		Users:         store.Users(),
		Notifications: store.Notifications(),
	}
}

// Services groups the application services.
type Services struct {
	Auth          *service.AuthService
	Lifecycle     *service.TicketLifecycle
	Verification  *service.VerificationService
	Equipment     *service.EquipmentService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Dispatcher    events.Dispatcher
}

// Options carries the optional collaborators of NewServices.
type Options struct {
	Push    service.PushPublisher
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewServices wires services over repos.
func NewServices(cfg *config.Config, repos Repositories, opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	allocator := service.NewCodeAllocator(cfg.Lifecycle.MaxCodeAttempts)

	lifecycle := service.NewTicketLifecycle(service.LifecycleDependencies{
		TicketStore:   repos.Tickets,
		EquipmentRepo: repos.Equipment,
		UserRepo:      repos.Users,
		Allocator:     allocator,
		Sync:          service.NewEquipmentStatusSync(logger),
		Dispatcher:    dispatcher,
		Policy:        service.PolicyFromConfig(cfg.Lifecycle),
		MaxAttempts:   cfg.Lifecycle.MaxTransitionAttempts,
		Metrics:       opts.Metrics,
		Logger:        logger.Named("lifecycle"),
	})

	return &Services{
		Auth:         service.NewAuthService(cfg.Auth, repos.Users, logger.Named("auth")),
		Lifecycle:    lifecycle,
		Verification: service.NewVerificationService(lifecycle, repos.Tickets, repos.Reports, logger.Named("verification")),
		Equipment:    service.NewEquipmentService(repos.Equipment, allocator, logger.Named("equipment")),
		Comments:     service.NewCommentService(repos.Tickets, repos.Comments, dispatcher, logger.Named("comments")),
		Notifications: service.NewNotificationService(service.NotificationDependencies{
			Dispatcher:    dispatcher,
			Notifications: repos.Notifications,
			Users:         repos.Users,
			Push:          opts.Push,
		}, logger.Named("notifications"), cfg.Notification),
		Dispatcher: dispatcher,
	}
}
