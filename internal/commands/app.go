package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/financeflow-dev/financeflow/internal/config"
	"github.com/financeflow-dev/financeflow/internal/ledger"
	"github.com/financeflow-dev/financeflow/internal/logging"
	"github.com/financeflow-dev/financeflow/internal/recurrence"
	"github.com/financeflow-dev/financeflow/internal/store"
)

// app wires the stores and services for one ledger directory.
type app struct {
	dir      string
	cfg      *config.Config
	log      zerolog.Logger
	accounts *store.AccountStore
	txs      *store.TransactionStore
	rules    *store.RuleStore
	ledger   *ledger.Service
	planner  *recurrence.Materializer
}

// openApp loads the config and stores under dir. The directory must have
// been initialized first.
func openApp(dir string) (*app, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(absDir, config.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a ledger directory, run init first", absDir)
		}
		return nil, err
	}

	log := logging.New(cfg.Logging.Level)

	accounts, err := store.OpenAccounts(absDir)
	if err != nil {
		return nil, err
	}
	txs, err := store.OpenTransactions(absDir)
	if err != nil {
		return nil, err
	}
	rules, err := store.OpenRules(absDir)
	if err != nil {
		return nil, err
	}

	svc := ledger.NewService(txs, accounts, log)

	return &app{
		dir:      absDir,
		cfg:      cfg,
		log:      log,
		accounts: accounts,
		txs:      txs,
		rules:    rules,
		ledger:   svc,
		planner:  recurrence.NewMaterializer(rules, svc, log),
	}, nil
}

// currencyOr returns the flag value when set, else the configured default.
func (a *app) currencyOr(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Ledger.Currency
}
