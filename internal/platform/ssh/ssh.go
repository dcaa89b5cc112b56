package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/xtserver/internal/platform/shell"
	"github.com/imamik/xtserver/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 12
	defaultRetryDelay  = 5 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Config holds SSH client configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout is the timeout for establishing the TCP connection.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	MaxRetries int

	// RetryDelay is the initial delay between connection attempts.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback

	Logger logr.Logger
}

// Client executes commands on a remote host.
type Client struct {
	config *Config
	signer ssh.Signer
	dial   func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)
}

var _ shell.Executor = (*Client)(nil)

// NewClient validates cfg and parses the private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // target hosts are freshly provisioned
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: &c, signer: signer, dial: ssh.Dial}, nil
}

// Addr returns host:port of the target.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// Run implements shell.Executor. The remote exit status is reported in the
// result; only connection and session failures are returned as errors.
func (c *Client) Run(ctx context.Context, command string, opts ...shell.RunOption) (shell.Result, error) {
	res := shell.Result{Command: command}

	client, err := c.connect(ctx)
	if err != nil {
		return res, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return res, fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	o := shell.Collect(opts...)
	var stdout, stderr bytes.Buffer
	if o.Quiet {
		session.Stdout = io.Discard
		session.Stderr = io.Discard
	} else {
		session.Stdout = &stdout
		session.Stderr = &stderr
	}
	if o.Stdin != "" {
		session.Stdin = strings.NewReader(o.Stdin)
	}

	err = session.Run(command)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return exitResult(res, err, c.config.Host)
}

func exitResult(res shell.Result, err error, host string) (shell.Result, error) {
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}

	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		res.ExitCode = -1
		return res, nil
	}

	return res, fmt.Errorf("command failed on %s: %w", host, err)
}

// Dial opens a connection that the caller owns and must close. It is used
// for protocols layered on SSH, such as SFTP.
func (c *Client) Dial(ctx context.Context) (*ssh.Client, error) {
	return c.connect(ctx)
}

// connect establishes an SSH connection with backoff.
func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := c.Addr()
	var client *ssh.Client

	err := retry.Do(ctx, func() error {
		var dialErr error
		client, dialErr = c.dial("tcp", addr, config)
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			c.config.Logger.V(1).Info("ssh dial failed, retrying", "addr", addr, "attempt", attempt, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}
