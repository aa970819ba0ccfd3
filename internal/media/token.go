package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Token is a proof-of-origin token and the visitor identity it was minted for.
type Token struct {
	VisitorData string `json:"visitorData"`
	PoToken     string `json:"poToken"`
}

// TokenProvider mints tokens that authorize stream access.
type TokenProvider interface {
	Token(ctx context.Context) (Token, error)
}

// CommandTokenProvider runs an external program that solves the upstream
// challenge in its own process and prints a Token as JSON on stdout.
// Tokens are reused until TTL expires.
type CommandTokenProvider struct {
	Command []string
	TTL     time.Duration

	mu      sync.Mutex
	cached  Token
	expires time.Time
	now     func() time.Time
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewCommandTokenProvider(command []string, ttl time.Duration) *CommandTokenProvider {
	return &CommandTokenProvider{
		Command: command,
		TTL:     ttl,
		now:     time.Now,
		run:     runCommand,
	}
}

func (p *CommandTokenProvider) Token(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached.PoToken != "" && p.now().Before(p.expires) {
		return p.cached, nil
	}
	if len(p.Command) == 0 {
		return Token{}, fmt.Errorf("token command not configured")
	}

	out, err := p.run(ctx, p.Command[0], p.Command[1:]...)
	if err != nil {
		return Token{}, fmt.Errorf("run token command: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(out, &tok); err != nil {
		return Token{}, fmt.Errorf("parse token: %w", err)
	}
	if tok.PoToken == "" || tok.VisitorData == "" {
		return Token{}, fmt.Errorf("token command returned an incomplete token")
	}

	p.cached = tok
	p.expires = p.now().Add(p.TTL)
	return tok, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
