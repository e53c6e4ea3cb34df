package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/container"
	"github.com/fyrsmithlabs/codex/internal/ignore"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/manifest"
)

const instrumentationName = "github.com/fyrsmithlabs/codex/internal/vault"

// Options configures a Vault handle.
type Options struct {
	// ScratchRoot is the parent of per-project scratch directories
	// (default: DefaultScratchRoot()).
	ScratchRoot string

	// Compression is applied to entries written by this handle (default: deflate).
	// Entries copied from the existing container keep their method.
	Compression container.Method

	// RespectIgnore filters ingested files through .gitignore and
	// .codexignore files found in the source tree.
	RespectIgnore bool

	// IgnoreFiles overrides the ignore file names used when RespectIgnore is set.
	IgnoreFiles []string

	// SecretPolicy enables credential scanning of ingested files (default: off).
	SecretPolicy SecretPolicy

	// NewScanner builds the secret scanner (default: GitleaksScanner("")).
	NewScanner ScannerFactory

	// Logger receives operation logs (default: no-op).
	Logger *logging.Logger
}

// DefaultScratchRoot returns <os.TempDir()>/codex.
func DefaultScratchRoot() string {
	return filepath.Join(os.TempDir(), "codex")
}

func (o Options) withDefaults() Options {
	if o.ScratchRoot == "" {
		o.ScratchRoot = DefaultScratchRoot()
	}
	if o.Compression == "" {
		o.Compression = container.MethodDeflate
	}
	if o.SecretPolicy == "" {
		o.SecretPolicy = SecretsOff
	}
	if o.NewScanner == nil {
		o.NewScanner = GitleaksScanner("")
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// Vault is an open vault backed by one container file.
type Vault struct {
	path   string
	opts   Options
	logger *logging.Logger
	ignore *ignore.Parser

	// Telemetry
	tracer       trace.Tracer
	mutations    metric.Int64Counter
	filesWritten metric.Int64Counter

	// writeMu serializes mutations of this handle; mu guards the manifest
	// pointer only.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	manifest *manifest.Vault

	// beforeCommit runs after the replacement is fully written and before
	// the rename. Tests use it to interrupt a rewrite.
	beforeCommit func(tmpPath string) error
}

func newVault(path string, opts Options) (*Vault, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr("resolve", path, err)
	}
	opts = opts.withDefaults()

	v := &Vault{
		path:   abs,
		opts:   opts,
		logger: opts.Logger.Named("vault").With(zap.String("vault.path", abs)),
		ignore: ignore.NewParser(opts.IgnoreFiles, nil),
		tracer: otel.Tracer(instrumentationName),
	}
	v.initMetrics()
	return v, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (v *Vault) initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error
	v.mutations, err = meter.Int64Counter(
		"codex.vault.mutations_total",
		metric.WithDescription("Total number of committed vault rewrites"),
		metric.WithUnit("{rewrite}"),
	)
	if err != nil {
		v.logger.Warn(context.Background(), "failed to create mutation counter", zap.Error(err))
	}

	v.filesWritten, err = meter.Int64Counter(
		"codex.vault.files_total",
		metric.WithDescription("Total number of project files ingested or copied out"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		v.logger.Warn(context.Background(), "failed to create file counter", zap.Error(err))
	}
}

// Open opens an existing vault. Any failure to read the container or its
// manifest is an *ArchiveError matching ErrInvalidArchive.
func Open(ctx context.Context, path string, opts Options) (*Vault, error) {
	v, err := newVault(path, opts)
	if err != nil {
		return nil, err
	}

	ctx, span := v.tracer.Start(ctx, "vault.open")
	defer span.End()
	span.SetAttributes(attribute.String("vault.path", v.path))

	m, err := manifest.Load(v.path)
	if err != nil {
		return nil, recordError(span, err)
	}
	v.manifest = m

	span.SetAttributes(attribute.Int("project_count", len(m.Projects)))
	v.logger.Debug(ctx, "vault opened", zap.Int("projects", len(m.Projects)))
	return v, nil
}

// Create writes a new, empty vault at path and opens it. An existing file at
// path is replaced atomically.
func Create(ctx context.Context, path string, opts Options) (*Vault, error) {
	v, err := newVault(path, opts)
	if err != nil {
		return nil, err
	}

	ctx, span := v.tracer.Start(ctx, "vault.create")
	defer span.End()
	span.SetAttributes(attribute.String("vault.path", v.path))

	if err := v.commit(ctx, manifest.New(), nil, "", nil); err != nil {
		return nil, recordError(span, err)
	}

	v.logger.Info(ctx, "vault created")
	return v, nil
}

// Path returns the absolute path of the container file.
func (v *Vault) Path() string {
	return v.path
}

// ScratchRoot returns the directory holding scratch extractions.
func (v *Vault) ScratchRoot() string {
	return v.opts.ScratchRoot
}

// Projects returns every project ordered by name, case-insensitively.
// Projects with equal names keep their manifest order.
func (v *Vault) Projects() []manifest.Project {
	return v.snapshot().Sorted()
}

// Project returns the project with the given id.
func (v *Vault) Project(id string) (manifest.Project, error) {
	p, ok := v.snapshot().Find(id)
	if !ok {
		return manifest.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p, nil
}

// ResolveID returns the id of the only project whose id equals or starts
// with ref.
func (v *Vault) ResolveID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty id", ErrProjectNotFound)
	}

	var matches []string
	for _, p := range v.snapshot().Projects {
		if p.ID == ref {
			return p.ID, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d projects", ErrAmbiguousID, ref, len(matches))
	}
}

// snapshot returns the current manifest. Callers must not modify it.
func (v *Vault) snapshot() *manifest.Vault {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.manifest
}

// recordError marks the span failed and returns err.
func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
