package vault

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/pkg/secrets"
)

// SecretPolicy controls credential scanning during AddProject.
type SecretPolicy string

const (
	// SecretsOff skips scanning.
	SecretsOff SecretPolicy = "off"

	// SecretsWarn logs findings and ingests anyway.
	SecretsWarn SecretPolicy = "warn"

	// SecretsBlock rejects the project with a *SecretsError.
	SecretsBlock SecretPolicy = "block"
)

// ParseSecretPolicy parses off, warn or block. Empty means off.
func ParseSecretPolicy(s string) (SecretPolicy, error) {
	switch p := SecretPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", SecretsOff:
		return SecretsOff, nil
	case SecretsWarn, SecretsBlock:
		return p, nil
	default:
		return "", fmt.Errorf("unknown secret policy %q (valid: off, warn, block)", s)
	}
}

// SecretScanner inspects one file. path is relative to the source root.
type SecretScanner interface {
	Scan(path string, content []byte) []secrets.Finding
}

// ScannerFactory builds a scanner for the source tree at root.
type ScannerFactory func(root string) (SecretScanner, error)

// GitleaksScanner returns a factory using the Gitleaks rule set, the
// root's .gitleaks.toml and the allowlist file at userAllowlist.
func GitleaksScanner(userAllowlist string) ScannerFactory {
	return func(root string) (SecretScanner, error) {
		allow, err := secrets.LoadAllowlists(root, userAllowlist)
		if err != nil {
			return nil, err
		}
		return secrets.NewScanner(allow)
	}
}

// scanSecrets applies the secret policy to files.
func (v *Vault) scanSecrets(ctx context.Context, root string, files []sourceFile) error {
	if v.opts.SecretPolicy == SecretsOff {
		return nil
	}

	scanner, err := v.opts.NewScanner(root)
	if err != nil {
		return fmt.Errorf("secret scanner: %w", err)
	}

	var findings []secrets.Finding
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.size > secrets.MaxScanSize {
			continue
		}
		content, err := os.ReadFile(f.path)
		if err != nil {
			return ioErr("read", f.path, err)
		}
		findings = append(findings, scanner.Scan(f.rel, content)...)
	}

	if len(findings) == 0 {
		return nil
	}
	if v.opts.SecretPolicy == SecretsBlock {
		return &SecretsError{Findings: findings}
	}
	for _, f := range findings {
		v.logger.Warn(ctx, "potential secret in project file",
			zap.String("file", f.Path),
			zap.Int("line", f.Line),
			zap.String("rule", f.RuleID))
	}
	return nil
}
