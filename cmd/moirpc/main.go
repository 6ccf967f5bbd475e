package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	errorsmod "cosmossdk.io/errors"
	tmlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/axelarnetwork/moi-rpc/config"
	"github.com/axelarnetwork/moi-rpc/events"
	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/provider"
	"github.com/axelarnetwork/moi-rpc/transport"
	"github.com/axelarnetwork/utils/jobs"
)

// flag names and the config keys they are bound to
var flagKeys = map[string]string{
	"http-url":     "http_url",
	"ws-url":       "ws_url",
	"legacy":       "legacy",
	"log-level":    "log_level",
	"metrics-addr": "metrics_addr",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := tmlog.NewTMLogger(tmlog.NewSyncWriter(os.Stderr)).With("process", "moirpc")
	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd(logger tmlog.Logger) *cobra.Command {
	var (
		configFile string
		a          = &app{logger: logger, registry: prometheus.NewRegistry()}
		v          = config.NewViper()
	)

	cmd := &cobra.Command{
		Use:              "moirpc",
		Short:            "MOI JSON-RPC client",
		TraverseChildren: true,
		SilenceUsage:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			allowed, err := tmlog.AllowLevel(cfg.LogLevel)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = tmlog.NewFilter(a.logger, allowed)
			a.serveMetrics(cmd.Context())
			return nil
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("http-url", defaults.HTTPURL, "HTTP JSON-RPC endpoint of the node")
	flags.String("ws-url", defaults.WSURL, "websocket JSON-RPC endpoint of the node")
	flags.Bool("legacy", defaults.Legacy, "expect responses wrapped in result.data")
	flags.String("log-level", defaults.LogLevel, "log level (debug, info, error, none)")
	flags.String("metrics-addr", defaults.MetricsAddr, "serve prometheus metrics on this address")

	var err error
	for flag, key := range flagKeys {
		err = multierr.Append(err, v.BindPFlag(key, flags.Lookup(flag)))
	}
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(
		CmdVersion(a),
		CmdTesseract(a),
		CmdBalance(a),
		CmdReceipt(a),
		CmdResult(a),
		CmdManifest(a),
		CmdSubscribe(a),
		CmdWatchTesseract(a),
	)

	return cmd
}

type app struct {
	cfg      config.Config
	logger   tmlog.Logger
	registry *prometheus.Registry
}

// provider returns a provider over the HTTP endpoint. Requests are counted in the metrics registry
func (a *app) provider() (*provider.Provider, error) {
	if a.cfg.HTTPURL == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "--http-url is required")
	}

	t, err := transport.NewHTTP(a.cfg.HTTPURL, a.cfg.DialOptions(a.logger)...)
	if err != nil {
		return nil, err
	}

	instrumented, err := transport.Instrument(t, a.registry)
	if err != nil {
		return nil, err
	}

	return provider.New(instrumented, a.cfg.ProviderOptions(a.logger)...)
}

// websocketProvider connects to the websocket endpoint. The caller must close it
func (a *app) websocketProvider() (*provider.WebsocketProvider, error) {
	if a.cfg.WSURL == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "--ws-url is required")
	}

	ws, err := transport.NewWebsocket(a.cfg.WSURL, a.cfg.DialOptions(a.logger)...)
	if err != nil {
		return nil, err
	}

	if err := ws.Start(); err != nil {
		return nil, multierr.Append(err, ws.Close())
	}

	p, err := provider.NewWebsocketProvider(ws, a.cfg.TesseractPollInterval, a.cfg.ProviderOptions(a.logger)...)
	if err != nil {
		return nil, multierr.Append(err, ws.Close())
	}

	return p, nil
}

func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	a.logger.Info("serving metrics on " + a.cfg.MetricsAddr)
}

// CmdVersion returns a cli command to print the node version
func CmdVersion(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and chain id of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider()
			if err != nil {
				return err
			}

			info, err := p.GetVersion(cmd.Context())
			if err != nil {
				return err
			}

			return report(info)
		},
	}
}

// CmdTesseract returns a cli command to fetch a tesseract by hash or by account height
func CmdTesseract(a *app) *cobra.Command {
	var include []string
	cmd := &cobra.Command{
		Use:   "tesseract <hash|address> [height]",
		Short: "Fetch a tesseract by hash, or by account address and height (-1 for the latest)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider()
			if err != nil {
				return err
			}

			ref := []any{args[0]}
			if len(args) == 2 {
				height, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid height %s", args[1])
				}
				ref = append(ref, height)
			}

			tesseract, err := p.GetTesseract(cmd.Context(), append(ref, include)...)
			if err != nil {
				return err
			}

			return report(tesseract)
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "optional tesseract fields to include")

	return cmd
}

// CmdBalance returns a cli command to print the balance of an asset
func CmdBalance(a *app) *cobra.Command {
	var height int64
	cmd := &cobra.Command{
		Use:   "balance <address> <asset-id>",
		Short: "Print the balance of an asset on an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider()
			if err != nil {
				return err
			}

			balance, err := p.GetBalance(cmd.Context(), args[0], args[1], provider.AtHeight(height))
			if err != nil {
				return err
			}

			fmt.Println(balance.String())
			return nil
		},
	}
	cmd.Flags().Int64Var(&height, "height", provider.LatestHeight, "tesseract number to query at")

	return cmd
}

// CmdReceipt returns a cli command to fetch the receipt of an interaction
func CmdReceipt(a *app) *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "receipt <hash>",
		Short: "Fetch the receipt of an interaction, optionally waiting until it is available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider()
			if err != nil {
				return err
			}

			var receipt *provider.Receipt
			if wait {
				receipt, err = p.WaitForReceipt(cmd.Context(), args[0], a.timeout(timeout))
			} else {
				receipt, err = p.GetInteractionReceipt(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			return report(receipt)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the receipt is available")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (defaults to wait_timeout)")

	return cmd
}

// CmdResult returns a cli command to wait for the result of an interaction
func CmdResult(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "result <hash>",
		Short: "Wait for an interaction and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider()
			if err != nil {
				return err
			}

			result, err := p.WaitForResult(cmd.Context(), args[0], a.timeout(timeout))
			if err != nil {
				return err
			}

			if result == nil {
				fmt.Println("interaction has no result")
				return nil
			}

			return report(result)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (defaults to wait_timeout)")

	return cmd
}

// CmdManifest returns a cli command to fetch the manifest of a logic
func CmdManifest(a *app) *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "manifest <logic-id>",
		Short: "Fetch the manifest of a logic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := provider.ParseEncoding(encoding)
			if err != nil {
				return err
			}

			p, err := a.provider()
			if err != nil {
				return err
			}

			manifest, err := p.GetLogicManifest(cmd.Context(), args[0], enc, nil)
			if err != nil {
				return err
			}

			return report(manifest)
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", string(provider.EncodingJSON), "manifest encoding (JSON, YAML or POLO)")

	return cmd
}

// CmdSubscribe returns a cli command to print the pushes of a network event
func CmdSubscribe(a *app) *cobra.Command {
	var (
		address string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "subscribe <newTesseracts|newTesseractsByAccount|newPendingInteractions|newLogs>",
		Short: "Print every push of a network event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := networkEvent(args[0], address)
			if err != nil {
				return err
			}

			p, err := a.websocketProvider()
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					a.logger.Error("failed to close the connection", "err", err)
				}
			}()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pushes, listener, err := p.Channel(ctx, ev, 100)
			if err != nil {
				return err
			}
			defer p.Off(ev, listener)

			a.logger.Debug("subscribed", "event", ev, "listener", listener.ID())

			received := 0
			mgr := jobs.NewMgr(ctx)
			mgr.AddJob(untilCancelled(events.Consume(pushes, func(push any) {
				if err := report(push); err != nil {
					a.logger.Error("failed to print push", "err", err)
				}

				received++
				if count > 0 && received >= count {
					cancel()
				}
			})))

			<-mgr.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "account address (required by newTesseractsByAccount and newLogs)")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many pushes (0 runs until interrupted)")

	return cmd
}

// CmdWatchTesseract returns a cli command to wait until a tesseract is available
func CmdWatchTesseract(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-tesseract <hash>",
		Short: "Wait until the tesseract with the given hash is found and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := events.Tesseract(args[0])
			if err != nil {
				return err
			}

			p, err := a.websocketProvider()
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					a.logger.Error("failed to close the connection", "err", err)
				}
			}()

			found := make(chan any, 1)
			listener := events.NewListener(func(args ...any) {
				if len(args) > 0 {
					found <- args[0]
				}
			})
			if err := p.Once(cmd.Context(), ev, listener); err != nil {
				return err
			}

			select {
			case tesseract := <-found:
				return report(tesseract)
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		},
	}
}

func (a *app) timeout(flag time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}

	return a.cfg.WaitTimeout
}

func networkEvent(name, address string) (events.Event, error) {
	switch strings.ToLower(name) {
	case "newtesseractsbyaccount":
		if address == "" {
			return events.Event{}, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "--address is required")
		}
		return events.NewTesseractsByAccount(address), nil
	case "newlogs":
		if address == "" {
			return events.Event{}, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "--address is required")
		}
		return events.NewLogs(events.LogFilter{StartHeight: provider.LatestHeight, EndHeight: provider.LatestHeight, Address: address}), nil
	default:
		ev, err := events.Named(name)
		if err != nil {
			return events.Event{}, err
		}

		if ev.Kind() != events.KindNetwork {
			return events.Event{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "%s is not a network event", name)
		}
		return ev, nil
	}
}

// untilCancelled treats cancellation as a regular end of the job
func untilCancelled(job jobs.Job) jobs.Job {
	return func(ctx context.Context) error {
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	}
}

func report(v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(bz))
	return nil
}
