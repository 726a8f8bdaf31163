package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/chameleon-db/colops/internal/admin"
	"github.com/chameleon-db/colops/internal/config"
	"github.com/chameleon-db/colops/internal/journal"
	"github.com/chameleon-db/colops/internal/state"
	"github.com/chameleon-db/colops/pkg/engine"
)

// session bundles everything a database command needs
type session struct {
	cfg       *config.Config
	factory   *admin.ManagerFactory
	connector *engine.Connector
	engine    *engine.Engine
	journal   *journal.Logger
	tracker   *state.Tracker
	logger    *zap.Logger
	database  state.DatabaseState
}

// openSession loads config, connects, and builds the engine.
// Journal and state are only opened when .colops/ exists.
func openSession(ctx context.Context) (*session, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := loadConfig(workDir)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	s := &session{
		cfg:     cfg,
		factory: admin.NewManagerFactory(workDir),
		logger:  logger,
	}

	if admin.NewDirectory(workDir).Exists() {
		if cfg.Operations.AuditLogging {
			if s.journal, err = s.factory.CreateJournalLogger(); err != nil {
				return nil, fmt.Errorf("failed to initialize journal: %w", err)
			}
		}
		if s.tracker, err = s.factory.CreateStateTracker(); err != nil {
			return nil, fmt.Errorf("failed to initialize state tracker: %w", err)
		}
	} else if verbose {
		printInfo("No %s/ directory, journal and state are disabled (run 'colops init')", admin.DirName)
	}

	connConfig, err := LoadConnectorConfig(cfg)
	if err != nil {
		return nil, err
	}
	s.database = state.DatabaseState{
		Driver:   cfg.Database.Driver,
		Host:     connConfig.Host,
		Port:     connConfig.Port,
		Database: connConfig.Database,
	}

	s.connector = engine.NewConnector(connConfig)
	if err := s.connector.Connect(ctx); err != nil {
		return nil, err
	}

	s.engine = engine.New(s.connector.Pool()).WithLogger(logger)
	if level, ok := debugLevel(); ok {
		s.engine.WithDebug(level)
	}

	return s, nil
}

// operationContext bounds one operation by the configured statement timeout.
// The server enforces the same limit through statement_timeout.
func (s *session) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.cfg.Database.StatementTimeoutDuration(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (s *session) Close() {
	if s.connector != nil {
		s.connector.Close()
	}
	_ = s.logger.Sync()
}
