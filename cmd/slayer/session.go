package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/slayer-suite/internal/config"
	"github.com/kingrea/slayer-suite/internal/logbook"
	"github.com/kingrea/slayer-suite/internal/logging"
	"github.com/kingrea/slayer-suite/internal/modules"
	"github.com/kingrea/slayer-suite/internal/suite"
	"github.com/kingrea/slayer-suite/plugins"
)

// catalogSource tags sign types inserted from catalog plugins.
const catalogSource = "catalog"

// session is one opened project: config, logs and a started suite with the
// built-in editors registered.
type session struct {
	cfg      *config.Config
	log      *logging.File
	suite    *suite.Suite
	builtins modules.Builtins
}

func openSession(ctx context.Context, projectDir string) (*session, error) {
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		projectDir = cwd
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitSlayerDir(abs); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.SlayerDir, err)
	}
	cfg, err := config.NewConfig(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logFile, err := logging.New(abs, cfg.Project.Logging.Level)
	if err != nil {
		return nil, err
	}
	journal, err := logbook.New(filepath.Join(cfg.LogsDir(), "journal.log"))
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s, err := suite.FromConfig(cfg,
		suite.WithLogger(logFile.Named("suite")),
		suite.WithLogbook(journal),
	)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	sess := &session{cfg: cfg, log: logFile, suite: s}
	if sess.builtins, err = modules.RegisterBuiltins(ctx, s); err != nil {
		sess.Close()
		return nil, err
	}
	seeded, err := plugins.SeedFromConfig(s.Catalog, cfg, catalogSource)
	if err != nil {
		// Broken entries are skipped; the rest of the catalog is usable.
		logFile.Warnf("catalog plugins: %v", err)
		journal.Warn(catalogSource, "%v", err)
	}
	if len(seeded.Added) > 0 {
		journal.Info(catalogSource, "loaded %d sign type(s) from %s", len(seeded.Added), cfg.CatalogDir())
	}
	// Seeding is setup, not an edit: history starts at "open".
	s.History.Clear()
	if err := s.Start(ctx, cfg.Project.Modules.Initial); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// openDefaultProject loads the default project document when one was saved.
func (s *session) openDefaultProject(ctx context.Context) error {
	path := s.suite.DefaultPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err := s.suite.Load(ctx, path)
	return err
}

func (s *session) Close() {
	if err := s.suite.Close(); err != nil {
		s.log.Warnf("close suite: %v", err)
	}
	_ = s.log.Close()
}
