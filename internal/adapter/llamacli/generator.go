// Package llamacli runs a local llama.cpp binary as a one-shot subprocess
// generator. No server component is involved: every Generate call spawns the
// binary, feeds it the prompt, and reaps it.
package llamacli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rag-gateway/internal/domain"
)

// binaryCandidates are probed in order when no explicit binary is configured.
var binaryCandidates = []string{"llama-cli", "llama-bin", "llama-simple", "main", "llama"}

// invocation conventions for passing the prompt to the binary.
const (
	modePromptFlag = "prompt-flag"
	modePositional = "positional"
)

// Generator shells out to a llama.cpp binary for each prompt.
type Generator struct {
	binary    string
	modelPath string
	gpuLayers int
	// preferPositional starts with the positional-prompt convention instead
	// of the -p flag. Resolved from the binary name; llama-simple builds only
	// accept the positional form.
	preferPositional bool
	logger           *slog.Logger
}

// NewGenerator resolves the llama.cpp binary and returns a generator for it.
// binary may be empty, in which case well-known names and any PATH entry
// starting with "llama-" are probed.
func NewGenerator(binary, modelPath string, gpuLayers int, logger *slog.Logger) (*Generator, error) {
	resolved, err := resolveBinary(binary)
	if err != nil {
		return nil, err
	}
	if modelPath == "" {
		return nil, errors.New("llamacli: model path is required")
	}
	return &Generator{
		binary:           resolved,
		modelPath:        modelPath,
		gpuLayers:        gpuLayers,
		preferPositional: strings.HasPrefix(filepath.Base(resolved), "llama-simple"),
		logger:           logger,
	}, nil
}

// resolveBinary picks the first usable binary: the explicit one, then the
// candidate names on PATH, then any PATH executable named llama-*.
func resolveBinary(explicit string) (string, error) {
	if explicit != "" {
		if path, err := exec.LookPath(explicit); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("llamacli: configured binary not found: %s", explicit)
	}
	for _, name := range binaryCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "llama-") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if info, err := os.Stat(path); err == nil && info.Mode()&0o111 != 0 {
				return path, nil
			}
		}
	}
	return "", errors.New("llamacli: no llama.cpp binary found on PATH")
}

// Generate runs the binary once under the caller's context. A nonzero exit
// with the preferred prompt convention triggers exactly one retry with the
// alternate convention, since llama.cpp builds disagree on whether the prompt
// is a -p flag or a positional argument.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	mode := modePromptFlag
	if g.preferPositional {
		mode = modePositional
	}

	out, err := g.runOnce(ctx, prompt, maxTokens, mode)
	if err != nil {
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) && errors.Is(genErr.Err, domain.ErrGenerateTimeout) {
			return "", err
		}
		alternate := modePositional
		if mode == modePositional {
			alternate = modePromptFlag
		}
		g.logger.WarnContext(ctx, "llamacli_retry_alternate_mode",
			slog.String("failed_mode", mode),
			slog.String("retry_mode", alternate),
			slog.String("error", err.Error()))
		out, err = g.runOnce(ctx, prompt, maxTokens, alternate)
		if err != nil {
			return "", err
		}
	}

	answer := cleanOutput(out, prompt)
	if answer == "" {
		return "", domain.ErrEmptyGeneration
	}
	return answer, nil
}

func (g *Generator) runOnce(ctx context.Context, prompt string, maxTokens int, mode string) (string, error) {
	args := []string{"-m", g.modelPath, "-n", strconv.Itoa(maxTokens)}
	if g.gpuLayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(g.gpuLayers))
	}
	if mode == modePositional {
		args = append(args, prompt)
	} else {
		args = append(args, "-p", prompt)
	}

	cmd := exec.CommandContext(ctx, g.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		// CommandContext already killed the process.
		g.logger.WarnContext(ctx, "llamacli_timed_out",
			slog.String("mode", mode),
			slog.Duration("elapsed", elapsed))
		return "", &domain.GenerationError{
			Mode:   mode,
			Err:    domain.ErrGenerateTimeout,
			Stderr: tail(stderr.String()),
		}
	}
	if err != nil {
		return "", &domain.GenerationError{
			Mode:   mode,
			Err:    err,
			Stderr: tail(stderr.String()),
		}
	}

	g.logger.DebugContext(ctx, "llamacli_completed",
		slog.String("mode", mode),
		slog.Duration("elapsed", elapsed),
		slog.Int("output_bytes", stdout.Len()))
	return stdout.String(), nil
}

// cleanOutput trims the raw process output and drops the echoed prompt that
// some llama.cpp builds print before the completion.
func cleanOutput(out, prompt string) string {
	out = strings.TrimSpace(out)
	if trimmed, ok := strings.CutPrefix(out, strings.TrimSpace(prompt)); ok {
		out = strings.TrimSpace(trimmed)
	}
	return out
}

const maxStderrTail = 2000

// tail keeps the end of stderr, where llama.cpp prints its actual error.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		s = s[len(s)-maxStderrTail:]
	}
	return s
}

func (g *Generator) Version() string {
	return "llamacli/" + filepath.Base(g.binary)
}

var _ domain.Generator = (*Generator)(nil)
