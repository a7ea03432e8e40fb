package executor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasttemplate"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

// SSHSettings configure SSH actions.
type SSHSettings struct {
	User            string
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	// MaxSessions bounds concurrent commands per host code. Missing hosts get 4.
	MaxSessions map[string]int
}

// SSHSettingsFromConfig reads credentials and host keys named by the [ssh] section.
func SSHSettingsFromConfig(cfg *config.Config) (SSHSettings, error) {
	if cfg.SSH == nil {
		return SSHSettings{}, fmt.Errorf("no [ssh] section")
	}

	settings := SSHSettings{
		User:           cfg.SSH.User,
		ConnectTimeout: cfg.SSH.GetConnectTimeout(),
		CommandTimeout: cfg.SSH.GetCommandTimeout(),
		MaxSessions:    make(map[string]int),
	}
	for _, h := range cfg.GetHosts() {
		settings.MaxSessions[strings.ToUpper(h.Code)] = h.GetMaxSessions()
	}

	if keyFile := cfg.GetAbsPrivateKeyFile(); keyFile != "" {
		pem, err := os.ReadFile(keyFile)
		if err != nil {
			return SSHSettings{}, fmt.Errorf("failed to read SSH private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return SSHSettings{}, fmt.Errorf("failed to parse SSH private key %s: %w", keyFile, err)
		}
		settings.Auth = append(settings.Auth, ssh.PublicKeys(signer))
	}
	if cfg.SSH.Password != "" {
		settings.Auth = append(settings.Auth, ssh.Password(cfg.SSH.Password))
	}

	if cfg.SSH.InsecureIgnoreHostKey {
		settings.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := knownhosts.New(cfg.GetAbsKnownHostsFile())
		if err != nil {
			return SSHSettings{}, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		settings.HostKeyCallback = callback
	}
	return settings, nil
}

// SSHExecutor runs catalogue commands on the selected host over SSH.
//
// One client connection is kept per host and shared by concurrent commands,
// each in its own session. A client that fails is dropped and redialled on
// the next call.
type SSHExecutor struct {
	catalog  domain.StatementCatalog
	settings SSHSettings
	limiter  *Limiter

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

func NewSSHExecutor(catalog domain.StatementCatalog, settings SSHSettings, limiter *Limiter) *SSHExecutor {
	if limiter == nil {
		limiter = NewLimiter()
	}
	return &SSHExecutor{
		catalog:  catalog,
		settings: settings,
		limiter:  limiter,
		clients:  make(map[string]*ssh.Client),
	}
}

// Execute implements domain.Executor.
func (e *SSHExecutor) Execute(ctx context.Context, def *domain.ApiDefinition, params domain.ValidatedParams, host domain.HostEndpoint) (*domain.RowSet, error) {
	tmpl, ok := e.catalog.Lookup(def.SyntaxKey)
	if !ok {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("%s: no command for key %q", def.Code, def.SyntaxKey), nil)
	}
	command, err := RenderCommand(tmpl, params)
	if err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("%s: %v", def.Code, err), nil)
	}

	if e.settings.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.CommandTimeout)
		defer cancel()
	}

	release, err := e.limiter.Acquire(ctx, "ssh:"+host.Code, e.maxSessions(host.Code))
	if err != nil {
		return nil, errors.NewTimeoutError(host.Code, err)
	}
	defer release()

	client, err := e.client(ctx, host)
	if err != nil {
		return nil, classify(ctx, host.Code, err)
	}

	session, err := client.NewSession()
	if err != nil {
		e.drop(host, client)
		return nil, errors.NewConnectionFailureError(host.Code, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	logger.Debugf("[%s] %s on %s: %s", domain.RequestIDFrom(ctx), def.Code, host.Code, command)
	if err := session.Start(command); err != nil {
		return nil, errors.NewRemoteFailureError(host.Code, 0, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, errors.NewTimeoutError(host.Code, ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		var missing *ssh.ExitMissingError
		switch {
		case stderrors.As(err, &exitErr):
			return nil, errors.NewRemoteFailureError(host.Code, exitErr.ExitStatus(), remoteMessage(stderr.Bytes(), exitErr))
		case stderrors.As(err, &missing):
			return nil, errors.NewRemoteFailureError(host.Code, -1, remoteMessage(stderr.Bytes(), missing))
		}
		e.drop(host, client)
		return nil, classify(ctx, host.Code, err)
	}

	sets, err := ParseDelimited(stdout.Bytes(), def.ActionType)
	if err != nil {
		return nil, errors.NewRemoteFailureError(host.Code, 0, fmt.Errorf("unparsable output: %w", err))
	}
	return &domain.RowSet{Sets: sets}, nil
}

func remoteMessage(stderr []byte, err error) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

func (e *SSHExecutor) maxSessions(code string) int {
	if n, ok := e.settings.MaxSessions[strings.ToUpper(code)]; ok && n > 0 {
		return n
	}
	return 4
}

func hostKey(host domain.HostEndpoint) string {
	port := host.SSHPort
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(host.Address, strconv.Itoa(int(port)))
}

func (e *SSHExecutor) client(ctx context.Context, host domain.HostEndpoint) (*ssh.Client, error) {
	addr := hostKey(host)

	e.mu.Lock()
	if c, ok := e.clients[addr]; ok {
		e.mu.Unlock()
		return c, nil
	}
	e.mu.Unlock()

	c, err := e.dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.clients[addr]; ok {
		_ = c.Close()
		return existing, nil
	}
	e.clients[addr] = c
	logger.Infof("Connected to %s over SSH", host)
	return c, nil
}

func (e *SSHExecutor) dial(ctx context.Context, addr string) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: e.settings.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if e.settings.ConnectTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(e.settings.ConnectTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            e.settings.User,
		Auth:            e.settings.Auth,
		HostKeyCallback: e.settings.HostKeyCallback,
		Timeout:         e.settings.ConnectTimeout,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake failed with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (e *SSHExecutor) drop(host domain.HostEndpoint, c *ssh.Client) {
	addr := hostKey(host)
	e.mu.Lock()
	if e.clients[addr] == c {
		delete(e.clients, addr)
	}
	e.mu.Unlock()
	_ = c.Close()
}

// Close disconnects every client.
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for addr, c := range e.clients {
		_ = c.Close()
		delete(e.clients, addr)
	}
	return nil
}

// RenderCommand substitutes shell-quoted parameters into a command template.
//
// Placeholders are {{name}} or {{position}}. A template without placeholders
// gets every parameter appended in field order.
func RenderCommand(tmpl string, params domain.ValidatedParams) (string, error) {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return "", fmt.Errorf("command is empty")
	}

	if !strings.Contains(tmpl, "{{") {
		parts := make([]string, 0, len(params)+1)
		parts = append(parts, tmpl)
		for _, p := range params {
			parts = append(parts, utils.ShellQuote(p.Value))
		}
		return strings.Join(parts, " "), nil
	}

	values := make(map[string]string, 2*len(params))
	for _, p := range params {
		values[p.Name] = p.Value
		values[strconv.Itoa(p.Position)] = p.Value
	}

	return fasttemplate.ExecuteFuncStringWithErr(tmpl, "{{", "}}", func(w io.Writer, tag string) (int, error) {
		tag = strings.TrimSpace(tag)
		v, ok := values[tag]
		if !ok {
			return 0, fmt.Errorf("unknown placeholder {{%s}}, known: %s", tag, strings.Join(knownPlaceholders(params), ", "))
		}
		return w.Write([]byte(utils.ShellQuote(v)))
	})
}

func knownPlaceholders(params domain.ValidatedParams) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
