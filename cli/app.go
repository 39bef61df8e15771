package cli

import (
	"github.com/rohanthewiz/serr"
	"github.com/spf13/cobra"

	"microwin/config"
	"microwin/db"
	"microwin/generator"
	"microwin/providers"
	"microwin/tasks"
	"microwin/validation"
)

// app holds the wired components a command needs
type app struct {
	cfg     config.Config
	db      *db.DB
	store   *db.TaskStore
	service *tasks.Service
}

func (a *app) Close() error {
	return a.db.Close()
}

// loadConfig reads the environment and applies any flags the user set.
// Callers validate the result for what they are about to open.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.DBDriver = dbDriverFlag
	}
	if flags.Changed("db-path") {
		cfg.DBPath = dbPathFlag
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Address = addrFlag
	}
}

// openStore opens only the record store. Generation settings are not checked.
func openStore(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return storeApp(cfg)
}

func storeApp(cfg config.Config) (*app, error) {
	database, err := db.Open(cfg)
	if err != nil {
		return nil, serr.Wrap(err, "failed to open record store")
	}
	return &app{cfg: cfg, db: database, store: db.NewTaskStore(database)}, nil
}

// openApp opens the store and wires the generation pipeline on top of it
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := storeApp(cfg)
	if err != nil {
		return nil, err
	}

	completer, err := providers.New(a.cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	gen := generator.New(completer, validation.NewPolicy(a.cfg))
	a.service = tasks.NewService(a.store, gen)
	return a, nil
}
