package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ExecRenderer shells out to the form-filling script, which fills the docx
// template and converts it to PDF. One subprocess per invocation; the PDF is
// read back from a per-invocation temp directory.
type ExecRenderer struct {
	scriptPath   string
	templatePath string
	workDir      string
	timeout      time.Duration
}

// NewExec constructs a script-backed renderer. A zero timeout defaults to 30s.
func NewExec(scriptPath, templatePath, workDir string, timeout time.Duration) *ExecRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecRenderer{
		scriptPath:   scriptPath,
		templatePath: templatePath,
		workDir:      workDir,
		timeout:      timeout,
	}
}

// Render fills the template with the applicant fields and returns the PDF
// bytes. Non-zero exits surface stderr in the error; deadline overruns
// surface ErrTimeout.
func (r *ExecRenderer) Render(ctx context.Context, fields Fields) ([]byte, error) {
	dir, err := os.MkdirTemp(r.workDir, "voldoc-")
	if err != nil {
		return nil, fmt.Errorf("render workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	docPath := filepath.Join(dir, "filled.docx")
	pdfPath := filepath.Join(dir, "filled.pdf")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "python", r.scriptPath,
		r.templatePath,
		fields.FirstName,
		fields.LastName,
		fields.NationalID,
		fields.Phone,
		fields.MobilePhone,
		docPath,
		pdfPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return nil, fmt.Errorf("render script failed: %w: %s", err, stderr.String())
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("render produced no pdf: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("render produced empty pdf")
	}
	return data, nil
}
