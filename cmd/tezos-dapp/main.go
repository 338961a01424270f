package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/metrics"
	"github.com/kelsos/tezos-dapp/internal/tui"
	"github.com/kelsos/tezos-dapp/internal/utils"
)

func main() {
	envFiles, envErr := utils.LoadEnvironment()
	logger.Init()
	for _, f := range envFiles {
		logger.Debug("Loaded environment from %s", f)
	}
	if envErr != nil {
		logger.Warn("%v", envErr)
	}

	var (
		networkID   string
		metricsAddr string
	)

	rootCmd := &cobra.Command{
		Use:   "tezos-dapp",
		Short: "A terminal dApp for Tezos wallets",
		Long: `tezos-dapp connects a Tezos wallet, shows its balance on the selected network,
drafts transfers and contract calls, and browses blocks, operations and accounts.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(networkID)
			if err != nil {
				return err
			}
			defer rt.close()

			logPath, err := logger.InitFileOnly(rt.cfg.LogDir)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx := cmd.Context()
			addr := metricsAddr
			if addr == "" {
				addr = rt.cfg.MetricsAddr
			}
			if addr != "" {
				go func() {
					if err := metrics.Serve(ctx, addr); err != nil {
						logger.Error("Metrics server stopped: %v", err)
					}
				}()
			}

			approver := tui.NewPromptApprover()
			store, err := rt.newStore(approver)
			if err != nil {
				return err
			}
			defer store.Close()

			app := tui.NewApp(tui.AppOptions{
				Store:           store,
				Registry:        rt.registry,
				Approver:        approver,
				NewExplorer:     rt.explorer,
				RefreshInterval: rt.cfg.RefreshInterval,
				OpTimeout:       rt.cfg.PairingTimeout,
			})
			if err := app.Run(ctx); err != nil {
				return err
			}

			fmt.Printf("Logs: %s\n", logPath)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&networkID, "network", "n", "", "Network to use (default: $TEZOS_NETWORK or ghostnet)")
	rootCmd.Flags().StringVarP(&metricsAddr, "metrics-addr", "", "", "Expose Prometheus metrics on this address, e.g. :9102")

	rootCmd.AddCommand(
		networksCmd(&networkID),
		statusCmd(&networkID),
		connectCmd(&networkID),
		disconnectCmd(&networkID),
		balanceCmd(&networkID),
		exploreCmd(&networkID),
		tokensCmd(&networkID),
		backupCmd(&networkID),
		restoreCmd(&networkID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal("Failed to execute command: %v", err)
	}
}
