// Package signing implements the optional signature-verification
// collaborator used by `governance verify --verify-signature`: it shells
// out to the cosign CLI rather than embedding its Go API.
package signing

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
)

// Verifier checks a plugin artifact's signature against its declared
// signing policy.
type Verifier interface {
	Verify(ctx context.Context, artifactRef string, signing protocol.SigningSpec) error
}

// CosignVerifier shells out to `cosign verify-blob` for each verification,
// matching the "calling external verifiers" non-goal: no sigstore client
// library is embedded.
type CosignVerifier struct {
	// CosignPath overrides the binary looked up on PATH, for tests.
	CosignPath string
}

// NewCosignVerifier returns a CosignVerifier using "cosign" from PATH.
func NewCosignVerifier() *CosignVerifier {
	return &CosignVerifier{CosignPath: "cosign"}
}

// Verify runs `cosign verify-blob` against artifactRef using the identity
// and issuer declared in signing. A manifest without signing.Required set
// is not verified; the orchestrator never requires this check to pass.
func (v *CosignVerifier) Verify(ctx context.Context, artifactRef string, signing protocol.SigningSpec) error {
	if !signing.Required {
		return nil
	}
	if signing.Signature == "" || signing.Certificate == "" {
		return apperrors.InvalidInput("signing.required is set but signature/certificate are missing")
	}

	args := []string{
		"verify-blob",
		"--signature", signing.Signature,
		"--certificate", signing.Certificate,
	}
	if signing.CertificateIdentity != "" {
		args = append(args, "--certificate-identity", signing.CertificateIdentity)
	}
	if signing.Issuer != "" {
		args = append(args, "--certificate-oidc-issuer", signing.Issuer)
	}
	args = append(args, artifactRef)

	cmd := exec.CommandContext(ctx, v.CosignPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperrors.Pluginf("cosign verify-blob failed for %s: %v (%s)", artifactRef, err, stderr.String())
	}
	return nil
}

// NoopVerifier skips signature verification entirely. The CLI does not use
// it: without --verify-signature, `governance verify` runs no verifier.
type NoopVerifier struct{}

// Verify implements Verifier.
func (NoopVerifier) Verify(context.Context, string, protocol.SigningSpec) error { return nil }
