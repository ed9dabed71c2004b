package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
)

type execProber struct {
	config  ExecConfig
	timeout time.Duration
	id      string
	logger  logging.Logger
}

// Check runs the configured command once. Exit status zero is healthy.
func (p *execProber) Check(ctx context.Context) Result {
	start := time.Now()

	p.logger.Debugf("Performing exec probe, id: %s, command: %s, args: %v",
		p.id, p.config.Command, p.config.Args)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.config.Command, p.config.Args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return newResult(start, false, fmt.Sprintf("exec probe timed out after %v", p.timeout))
	}

	if err != nil {
		return newResult(start, false, fmt.Sprintf("exec probe failed: %v, output: %s", err, trimOutput(output)))
	}

	return newResult(start, true, fmt.Sprintf("exec probe passed, output: %s", trimOutput(output)))
}

// trimOutput keeps probe messages single-line and bounded.
func trimOutput(output []byte) string {
	const limit = 256

	text := strings.TrimSpace(string(output))
	text = strings.ReplaceAll(text, "\n", " | ")
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}
