// Command letterctl runs administrative tasks against the letterdesk database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"letterdesk/internal/audit"
	"letterdesk/internal/cache"
	"letterdesk/internal/config"
	"letterdesk/internal/db"
	"letterdesk/internal/events"
	"letterdesk/internal/logger"
	"letterdesk/internal/repository"
	"letterdesk/internal/service"
)

// app holds the services the subcommands share. It is built lazily so that
// commands which need no database (import-template) work offline.
type app struct {
	cfg       *config.Config
	users     service.UserService
	imports   service.ImportService
	closeFunc func()
}

func (a *app) open() error {
	if a.users != nil {
		return nil
	}
	gormDB, err := db.NewMySQL(a.cfg.MySQLDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(a.cfg.RedisAddr, a.cfg.RedisPass, a.cfg.RedisDB)
	var publisher events.Publisher = events.NoopPublisher{}
	if a.cfg.RabbitMQURL != "" {
		if rabbit, err := events.NewRabbitPublisher(a.cfg.RabbitMQURL); err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
		} else {
			publisher = rabbit
		}
	}

	auditLog := audit.New(log.Logger)
	userRepo := repository.NewUserRepository(gormDB)
	a.users = service.NewUserService(userRepo, cacheClient, auditLog, a.cfg.BcryptCost)
	a.imports = service.NewImportService(userRepo, cacheClient, publisher, auditLog, a.cfg.BcryptCost)
	a.closeFunc = func() {
		_ = publisher.Close()
		_ = cacheClient.Close()
	}
	return nil
}

func (a *app) close() {
	if a.closeFunc != nil {
		a.closeFunc()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "letterctl",
		Short:         "Administrative tools for letterdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWriter(cmd.ErrOrStderr(), a.cfg.LogLevel, a.cfg.LogFormat)
		},
	}
	root.AddCommand(
		newImportUsersCmd(a),
		newImportTemplateCmd(a),
		newSeedAdminCmd(a),
	)
	return root
}

func main() {
	a := &app{cfg: config.Load()}
	defer a.close()

	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		a.close()
		os.Exit(1)
	}
}
