package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kelsos/tezos-dapp/internal/backup"
	"github.com/kelsos/tezos-dapp/internal/blockchain"
	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/models"
	"github.com/kelsos/tezos-dapp/internal/session"
	"github.com/kelsos/tezos-dapp/internal/tezos"
	"github.com/kelsos/tezos-dapp/internal/utils"
	"github.com/kelsos/tezos-dapp/internal/wallet"
)

// rejectPairing is the approver of commands that never pair
var rejectPairing = wallet.ApproverFunc(func(context.Context, wallet.PairingRequest) (wallet.PairingResponse, error) {
	return wallet.PairingResponse{}, wallet.ErrPairingRejected
})

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

// initializedStore builds a store and loads the wallet's active account
func initializedStore(ctx context.Context, rt *runtime, approver wallet.Approver) (*session.Store, error) {
	store, err := rt.newStore(approver)
	if err != nil {
		return nil, err
	}
	store.Initialize(ctx)
	if !store.Snapshot().Initialized() {
		store.Close()
		return nil, errors.New("wallet client failed to initialize, see log above")
	}
	return store, nil
}

func printSession(s session.Session) {
	fmt.Printf("Network: %s (%s)\n", s.Network.Name, s.Network.ID)
	fmt.Printf("Status:  %s\n", s.Status)
	if s.Account != nil {
		fmt.Printf("Account: %s\n", s.Account.Address)
		fmt.Printf("Balance: %s ꜩ\n", s.Account.BalanceTez())
		fmt.Printf("Explorer: %s\n", s.Network.AccountURL(s.Account.Address))
	}
	if s.NetworkMismatch() {
		fmt.Printf("Warning: the wallet was paired on %s\n", s.WalletNetwork)
	}
}

func networksCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the networks the dApp can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}

			selected := rt.registry.DefaultNetwork().ID
			rows := make([][]string, 0)
			for _, n := range rt.registry.List() {
				marker := ""
				if n.ID == selected {
					marker = "*"
				}
				kind := "mainnet"
				if n.Testnet {
					kind = "testnet"
				}
				rows = append(rows, []string{marker, string(n.ID), n.Name, kind, n.RPCEndpoint, n.ExplorerAPI})
			}
			fmt.Println(render([]string{"", "ID", "Name", "Kind", "RPC", "Explorer API"}, rows))
			return nil
		},
	}
}

func statusCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and the health of the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			defer rt.close()

			net := rt.registry.DefaultNetwork()
			node := rt.node(net)
			if version, err := node.Version(ctx); err != nil {
				logger.Warn("Node %s unreachable: %v", node.Endpoint(), err)
			} else {
				fmt.Printf("Node:     %s %s\n", node.Endpoint(), version)
			}
			if head, err := node.Head(ctx); err == nil {
				fmt.Printf("Head:     %d %s (%s)\n", head.Level, head.Hash, utils.FormatAge(head.Timestamp, time.Now()))
			}

			explorer := rt.explorer(net)
			if head, err := explorer.Head(ctx); err != nil {
				logger.Warn("Explorer %s unreachable: %v", explorer.BaseURL(), err)
			} else {
				fmt.Printf("Explorer: %s level %d, synced %t\n", explorer.BaseURL(), head.Level, head.Synced)
			}
			fmt.Println()

			store, err := initializedStore(ctx, rt, rejectPairing)
			if err != nil {
				return err
			}
			defer store.Close()

			printSession(store.Snapshot())
			return nil
		},
	}
}

func connectCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Pair a wallet with the dApp on the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("connect needs an interactive terminal to read the wallet's answer")
			}

			ctx := cmd.Context()
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			defer rt.close()

			store, err := initializedStore(ctx, rt, wallet.TerminalApprover{In: os.Stdin, Out: os.Stdout})
			if err != nil {
				return err
			}
			defer store.Close()

			if s := store.Snapshot(); s.Connected() {
				fmt.Printf("Already connected as %s\n", s.Account.Address)
				return nil
			}
			if err := store.ConnectWallet(ctx); err != nil {
				return err
			}
			fmt.Println()
			printSession(store.Snapshot())
			return nil
		},
	}
}

func disconnectCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the wallet paired on the selected network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			defer rt.close()

			store, err := initializedStore(ctx, rt, rejectPairing)
			if err != nil {
				return err
			}
			defer store.Close()

			if !store.Snapshot().Connected() {
				fmt.Println("No wallet connected")
				return nil
			}
			if err := store.DisconnectWallet(ctx); err != nil {
				return err
			}
			fmt.Println("Wallet disconnected")
			return nil
		},
	}
}

func balanceCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the balance of an address or of the connected account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			defer rt.close()

			if len(args) == 1 {
				address := strings.TrimSpace(args[0])
				balance, err := rt.node(rt.registry.DefaultNetwork()).Balance(ctx, address)
				if err != nil {
					return err
				}
				fmt.Printf("%s ꜩ\n", tezos.FormatTez(balance))
				return nil
			}

			store, err := initializedStore(ctx, rt, rejectPairing)
			if err != nil {
				return err
			}
			defer store.Close()

			s := store.Snapshot()
			if !s.Connected() {
				return errors.New("no wallet connected, run connect first or pass an address")
			}
			fmt.Printf("%s ꜩ\n", s.Account.BalanceTez())
			return nil
		},
	}
}

func exploreCmd(networkID *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "explore [query]",
		Short: "Look up a block, operation, account or contract; without a query list recent activity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			explorer := rt.explorer(rt.registry.DefaultNetwork())

			if len(args) == 0 {
				overview, err := explorer.Overview(ctx, limit)
				if err != nil {
					return err
				}
				printOverview(overview)
				return nil
			}

			result, err := explorer.Search(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", blockchain.DefaultPageSize, "Number of recent blocks and transactions")
	return cmd
}

func tokensCmd(networkID *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tokens <address>",
		Short: "List the token balances of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			balances, err := rt.explorer(rt.registry.DefaultNetwork()).TokenBalances(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(balances) == 0 {
				fmt.Println("No tokens")
				return nil
			}

			rows := make([][]string, 0, len(balances))
			for _, b := range balances {
				rows = append(rows, []string{b.Token.DisplayName(), b.Token.Standard, b.Amount(), tezos.ShortAddress(b.Token.Contract.Address)})
			}
			fmt.Println(render([]string{"Token", "Standard", "Balance", "Contract"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of tokens")
	return cmd
}

func printOverview(o *models.Overview) {
	rows := make([][]string, 0, len(o.Blocks))
	for _, b := range o.Blocks {
		rows = append(rows, []string{fmt.Sprintf("%d", b.Level), b.Hash, b.Producer.Label(), utils.FormatAge(b.Timestamp, o.FetchedAt)})
	}
	fmt.Println(render([]string{"Level", "Hash", "Baker", "Age"}, rows))

	rows = rows[:0]
	for _, op := range o.Operations {
		rows = append(rows, []string{op.Hash, op.Sender.Label(), op.Counterparty().Label(), tezos.FormatTez(op.Amount)})
	}
	fmt.Println(render([]string{"Operation", "From", "To", "Amount ꜩ"}, rows))
}

func printResult(r *models.QueryResult) {
	switch r.Kind {
	case models.QueryBlock:
		b := r.Block
		fmt.Printf("Block %d (cycle %d)\n", b.Level, b.Cycle)
		fmt.Printf("Hash:   %s\n", b.Hash)
		fmt.Printf("Time:   %s\n", b.Timestamp.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Baker:  %s\n", b.Producer.Label())
		fmt.Printf("Fees:   %s ꜩ\n", tezos.FormatTez(b.Fees))
		fmt.Printf("Transactions: %d\n", len(b.Transactions))
	case models.QueryOperation:
		rows := make([][]string, 0, len(r.Operations))
		for _, op := range r.Operations {
			entry := ""
			if op.Parameter != nil {
				entry = op.Parameter.Entrypoint
			}
			rows = append(rows, []string{op.Type, op.Sender.Label(), op.Counterparty().Label(), tezos.FormatTez(op.Amount), entry, op.Status})
		}
		fmt.Printf("Operation %s\n", r.Query)
		fmt.Println(render([]string{"Type", "From", "To", "Amount ꜩ", "Entrypoint", "Status"}, rows))
	case models.QueryAccount:
		a := r.Account
		fmt.Printf("Account %s %s\n", a.Address, a.Alias)
		fmt.Printf("Balance:  %s ꜩ\n", tezos.FormatTez(a.Balance))
		fmt.Printf("Revealed: %t\n", a.Revealed)
		if a.Delegate != nil {
			fmt.Printf("Delegate: %s\n", a.Delegate.Label())
		}
		fmt.Printf("Transactions: %d\n", a.NumTransactions)
	case models.QueryContract:
		c := r.Contract
		fmt.Printf("Contract %s %s\n", c.Address, c.Alias)
		fmt.Printf("Kind:    %s\n", c.Kind)
		fmt.Printf("Balance: %s ꜩ\n", tezos.FormatTez(c.Balance))
		if c.Creator != nil {
			fmt.Printf("Creator: %s\n", c.Creator.Label())
		}
		if len(c.Tzips) > 0 {
			fmt.Printf("Standards: %s\n", strings.Join(c.Tzips, ", "))
		}
		for _, e := range c.Entrypoints {
			fmt.Printf("  entrypoint %s\n", e.Name)
		}
	}
}

func backupCmd(networkID *string) *cobra.Command {
	var backupDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Save the paired wallet accounts of every network to a zip file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			file, err := backup.CreateBackup(rt.accounts, backupDir)
			if err != nil {
				return err
			}
			fmt.Println(file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&backupDir, "backup-dir", "", "", "Directory where the backup will be stored (default: ~/backups)")
	return cmd
}

func restoreCmd(networkID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore paired wallet accounts from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*networkID)
			if err != nil {
				return err
			}
			restored, err := backup.RestoreBackup(args[0], rt.accounts)
			for _, a := range restored {
				fmt.Printf("%s: %s\n", a.Network, a.Address)
			}
			return err
		},
	}
}
