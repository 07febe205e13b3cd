package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/config"
	"github.com/metapool/go-metavote/gateway"
	"github.com/metapool/go-metavote/metrics"
	"github.com/metapool/go-metavote/orchestrator"
	"github.com/metapool/go-metavote/signing"
	"github.com/metapool/go-metavote/voter"
)

// app wires the configured gateway, snapshot store and orchestrator for one
// command invocation.
type app struct {
	conf   *config.Config
	logger *zap.Logger
	client *gateway.Client
	store  *voter.Store
	orch   *orchestrator.Orchestrator
}

// newApp builds the client stack from the command's flags and config file.
// Commands that only read views run without a signing key.
func newApp(cmd *cobra.Command, needSigner bool) (*app, error) {
	conf, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if conf.Account == "" {
		return nil, errors.New("account is required; pass --account or set main.account")
	}

	logger, err := conf.LOGGING.Build()
	if err != nil {
		return nil, err
	}

	gopts := []gateway.Opt{
		gateway.WithLogger(conf.LOGGING.Module(logger, "gateway", conf.LOGGING.GatewayLoggerLevel)),
	}
	if needSigner {
		signer, err := signing.NewEdSigner(
			signing.FromFile(conf.KeyFile),
			signing.WithAccountID(types.AccountID(conf.Account)),
		)
		if err != nil {
			return nil, fmt.Errorf("loading signing key (run `metavote init` to create one): %w", err)
		}
		gopts = append(gopts, gateway.WithSigner(signer))
	}
	client, err := gateway.NewClient(conf.Gateway, gopts...)
	if err != nil {
		return nil, err
	}

	confirmer := orchestrator.Confirmer(orchestrator.AutoConfirm{})
	if !conf.AssumeYes {
		confirmer = &terminalConfirmer{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	}

	store := voter.NewStore()
	orch := orchestrator.New(client, store, types.VoterID(conf.Account),
		orchestrator.WithLogger(conf.LOGGING.Module(logger, "orchestrator", conf.LOGGING.OrchestratorLoggerLevel)),
		orchestrator.WithConfig(conf.Orchestrator),
		orchestrator.WithConfirmer(confirmer),
		orchestrator.WithReporter(&consoleReporter{out: cmd.OutOrStdout()}),
	)

	if conf.CollectMetrics {
		metrics.StartCollectingMetrics(logger, conf.MetricsPort)
	}

	return &app{
		conf:   conf,
		logger: logger,
		client: client,
		store:  store,
		orch:   orch,
	}, nil
}

// decimals returns the governance token's decimal places, falling back to the
// ledger's 24-decimal convention when the metadata view is unreachable.
func (a *app) decimals(ctx context.Context) uint8 {
	md, err := a.client.Metadata(ctx)
	if err != nil {
		a.logger.Debug("token metadata unavailable, assuming 24 decimals", zap.Error(err))
		return 24
	}
	return md.Decimals
}

// terminalConfirmer prints the action prompt and reads a yes/no answer.
type terminalConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (c *terminalConfirmer) Confirm(_ context.Context, prompt orchestrator.Prompt) (bool, error) {
	fmt.Fprintf(c.out, "%s\n%s\n[y/N]: ", prompt.Title, prompt.Text)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// consoleReporter prints orchestrator notices to the terminal.
type consoleReporter struct {
	out io.Writer
}

func (r *consoleReporter) Report(n orchestrator.Notice) {
	prefix := map[orchestrator.Severity]string{
		orchestrator.Info:    "·",
		orchestrator.Success: "✓",
		orchestrator.Warning: "!",
		orchestrator.Failure: "✗",
	}[n.Severity]
	if n.Message != "" {
		fmt.Fprintf(r.out, "%s %s: %s\n", prefix, n.Title, n.Message)
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", prefix, n.Title)
}
