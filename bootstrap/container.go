package bootstrap

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/defect-tracker/api/v1"
	"github.com/defect-tracker/config"
	"github.com/defect-tracker/database"
	"github.com/defect-tracker/lib/cache"
	"github.com/defect-tracker/lib/messaging"
	"github.com/defect-tracker/lib/storage"
	"github.com/defect-tracker/logger"
	"github.com/defect-tracker/middleware"
	"github.com/defect-tracker/repositories"
	"github.com/defect-tracker/services"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildContainer registers every provider; nothing is constructed until invoked
func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := database.Open(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(context.Background(), d); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis; nil when not configured
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg.Redis), nil
	})
	do.Provide(inj, func(i *do.Injector) (*cache.TokenBlacklist, error) {
		return cache.NewTokenBlacklist(do.MustInvoke[*redis.Client](i)), nil
	})

	// RabbitMQ publisher; events are dropped when no broker is configured
	do.Provide(inj, func(i *do.Injector) (messaging.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.RabbitMQ.URL == "" {
			log.Info("RabbitMQ not configured, defect events are disabled")
			return messaging.NopPublisher{}, nil
		}
		return messaging.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	})

	// File storage
	do.Provide(inj, func(i *do.Injector) (storage.FileStorage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.Storage.Backend {
		case "", "local":
			return storage.NewLocalStorage(cfg.Storage.Root), nil
		case "s3":
			return storage.NewS3Storage(context.Background(), cfg.Storage.S3)
		default:
			return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
		}
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (*repositories.ProjectRepository, error) {
		return repositories.NewProjectRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*repositories.DefectRepository, error) {
		return repositories.NewDefectRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*repositories.CommentRepository, error) {
		return repositories.NewCommentRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*repositories.AttachmentRepository, error) {
		return repositories.NewAttachmentRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*repositories.UserRepository, error) {
		return repositories.NewUserRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*repositories.RoleRepository, error) {
		return repositories.NewRoleRepository(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (*services.IdentityService, error) {
		return services.NewIdentityService(
			do.MustInvoke[*repositories.UserRepository](i),
			do.MustInvoke[*repositories.RoleRepository](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.AuthService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var revoked services.RevocationStore
		if bl := do.MustInvoke[*cache.TokenBlacklist](i); bl.Enabled() {
			revoked = bl
		}
		return services.NewAuthService(
			do.MustInvoke[*services.IdentityService](i),
			revoked,
			cfg.Auth.JWTSecret,
			cfg.Auth.TokenTTL,
			cfg.Auth.Issuer,
		)
	})
	do.Provide(inj, func(i *do.Injector) (*services.ProjectService, error) {
		return services.NewProjectService(do.MustInvoke[*repositories.ProjectRepository](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.DefectService, error) {
		return services.NewDefectService(services.DefectServiceDeps{
			Defects:     do.MustInvoke[*repositories.DefectRepository](i),
			Projects:    do.MustInvoke[*repositories.ProjectRepository](i),
			Users:       do.MustInvoke[*repositories.UserRepository](i),
			Comments:    do.MustInvoke[*repositories.CommentRepository](i),
			Attachments: do.MustInvoke[*repositories.AttachmentRepository](i),
			Files:       do.MustInvoke[storage.FileStorage](i),
			Events:      do.MustInvoke[messaging.Publisher](i),
			Log:         do.MustInvoke[*zap.Logger](i),
		}), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ReportService, error) {
		return services.NewReportService(
			do.MustInvoke[*repositories.DefectRepository](i),
			do.MustInvoke[*repositories.ProjectRepository](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.AccountService, error) {
		return services.NewAccountService(do.MustInvoke[*services.IdentityService](i)), nil
	})

	// Router dependencies
	do.Provide(inj, func(i *do.Injector) (v1.RouterDeps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		auth := do.MustInvoke[*services.AuthService](i)
		return v1.RouterDeps{
			Auth:          auth,
			Authenticator: auth,
			Defects:       do.MustInvoke[*services.DefectService](i),
			Projects:      do.MustInvoke[*services.ProjectService](i),
			Reports:       do.MustInvoke[*services.ReportService](i),
			Accounts:      do.MustInvoke[*services.AccountService](i),
			LoginLimiter:  middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst),
			CookieSecure:  cfg.Auth.CookieSecure,
			AllowOrigins:  cfg.App.AllowOrigins,
			Log:           do.MustInvoke[*zap.Logger](i),
		}, nil
	})

	return inj
}

// Close releases the connections the container opened. The AMQP publisher is
// closed through the injector only when it was built.
func Close(inj *do.Injector) error {
	var errs []error
	if rdb, err := do.Invoke[*redis.Client](inj); err == nil && rdb != nil {
		errs = append(errs, rdb.Close())
	}
	if db, err := do.Invoke[*gorm.DB](inj); err == nil {
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	errs = append(errs, inj.Shutdown())
	return errors.Join(errs...)
}
