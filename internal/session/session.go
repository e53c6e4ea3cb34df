// Package session tracks the vault a CLI invocation works on and the
// scratch directories it extracted, so they can be removed on exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/config"
	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/vault"
)

// ErrNoVault is returned when no vault has been opened or created.
var ErrNoVault = errors.New("no vault is open")

// Session owns the current vault handle and the scratch registry.
type Session struct {
	id     string
	opts   vault.Options
	logger *logging.Logger

	mu      sync.Mutex
	current *vault.Vault
	scratch []string
}

// New builds a session from cfg. logger may be nil.
func New(cfg *config.Config, logger *logging.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	method, err := container.ParseMethod(cfg.Vault.Compression)
	if err != nil {
		return nil, fmt.Errorf("vault.compression: %w", err)
	}

	policy, err := vault.ParseSecretPolicy(cfg.Vault.SecretScan)
	if err != nil {
		return nil, fmt.Errorf("vault.secret_scan: %w", err)
	}

	id := uuid.New().String()
	return &Session{
		id: id,
		opts: vault.Options{
			ScratchRoot:   cfg.Vault.ScratchRoot,
			Compression:   method,
			RespectIgnore: cfg.Vault.RespectIgnore,
			IgnoreFiles:   cfg.Vault.IgnoreFiles,
			SecretPolicy:  policy,
			NewScanner:    vault.GitleaksScanner(cfg.Vault.SecretAllowlist),
			Logger:        logger,
		},
		logger: logger.With(zap.String("session.id", id)),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Context tags ctx with the session id for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, s.id)
}

// Options returns the vault options derived from config.
func (s *Session) Options() vault.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Configure adjusts the options used by vaults opened afterwards.
func (s *Session) Configure(fn func(*vault.Options)) {
	s.mu.Lock()
	fn(&s.opts)
	s.mu.Unlock()
}

// Open opens the vault at path and makes it current.
func (s *Session) Open(ctx context.Context, path string) (*vault.Vault, error) {
	v, err := vault.Open(s.Context(ctx), path, s.Options())
	if err != nil {
		return nil, err
	}
	s.setCurrent(v)
	return v, nil
}

// Create writes an empty vault at path and makes it current.
func (s *Session) Create(ctx context.Context, path string) (*vault.Vault, error) {
	v, err := vault.Create(s.Context(ctx), path, s.Options())
	if err != nil {
		return nil, err
	}
	s.setCurrent(v)
	return v, nil
}

func (s *Session) setCurrent(v *vault.Vault) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
}

// Vault returns the current vault or ErrNoVault.
func (s *Session) Vault() (*vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoVault
	}
	return s.current, nil
}

// Extract extracts project id from the current vault and registers its
// scratch directory for removal at Shutdown.
func (s *Session) Extract(ctx context.Context, id string) (vault.Extraction, error) {
	v, err := s.Vault()
	if err != nil {
		return vault.Extraction{}, err
	}

	ext, err := v.ExtractToScratch(s.Context(ctx), id)
	if err != nil {
		return vault.Extraction{}, err
	}

	s.mu.Lock()
	if !slices.Contains(s.scratch, ext.Dir) {
		s.scratch = append(s.scratch, ext.Dir)
	}
	s.mu.Unlock()
	return ext, nil
}

// ScratchDirs returns the registered scratch directories in extraction order.
func (s *Session) ScratchDirs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scratch)
}

// Keep drops dir from the registry so Shutdown leaves it in place.
func (s *Session) Keep(dir string) {
	s.mu.Lock()
	s.scratch = slices.DeleteFunc(s.scratch, func(d string) bool { return d == dir })
	s.mu.Unlock()
}

// Shutdown removes every registered scratch directory and clears the
// registry. Removal errors are joined; a second call is a no-op.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	dirs := s.scratch
	s.scratch = nil
	s.current = nil
	s.mu.Unlock()

	ctx = s.Context(ctx)
	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, &vault.IOError{Op: "remove scratch", Path: dir, Err: err})
			continue
		}
		s.logger.Debug(ctx, "scratch directory removed", zap.String("dir", dir))
	}
	if len(dirs) > 0 {
		s.logger.Info(ctx, "session shut down", zap.Int("scratch_dirs", len(dirs)), zap.Int("errors", len(errs)))
	}
	return errors.Join(errs...)
}
