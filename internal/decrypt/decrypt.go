// Package decrypt removes the password from contract note PDFs by shelling
// out to qpdf.
package decrypt

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DecryptedSuffix marks a decrypted artifact. The extraction step only
// considers files carrying this suffix.
const DecryptedSuffix = "_decrypted.pdf"

// QPDF invokes the qpdf command line tool.
type QPDF struct {
	// Binary is the qpdf executable, "qpdf" by default.
	Binary string
}

// New returns a decryptor using the qpdf binary on PATH.
func New() *QPDF {
	return &QPDF{Binary: "qpdf"}
}

// OutputPath returns the decrypted file name for an encrypted input.
func OutputPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, ".pdf") + DecryptedSuffix
}

// Decrypt writes a password-free copy of inputPath to outputPath.
func (q *QPDF) Decrypt(ctx context.Context, inputPath, outputPath, password string) error {
	args := buildArgs(inputPath, outputPath, password)
	cmd := exec.CommandContext(ctx, q.Binary, args...)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("decrypt: qpdf failed for %q: %w, output: %s", inputPath, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func buildArgs(inputPath, outputPath, password string) []string {
	return []string{
		fmt.Sprintf("--password=%s", password),
		"--decrypt",
		inputPath,
		outputPath,
	}
}
