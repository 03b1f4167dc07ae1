package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchlab/internal/blockchain/solbc"
	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/history"
	"github.com/rovshanmuradov/launchlab/internal/ui/style"
)

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [mint]",
		Short: "Show the wallet SOL balance and optionally a token balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if s.Wallet == nil {
				return errors.New("balance needs wallet_key to be configured")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			lamports, err := s.Ledger.GetBalance(ctx, s.Wallet.PublicKey)
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}
			fmt.Fprintf(out, "%s: %s SOL\n", s.Wallet, curve.FormatAssetAmount(decimal.NewFromUint64(lamports)))

			if len(args) == 0 {
				return nil
			}
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid mint: %w", err)
			}
			ata, err := s.Wallet.GetATA(mint)
			if err != nil {
				return err
			}
			raw, err := s.Ledger.GetTokenAccountBalance(ctx, ata)
			switch {
			case errors.Is(err, solbc.ErrAccountNotFound):
				raw = "0"
			case err != nil:
				return fmt.Errorf("get token balance: %w", err)
			}
			units, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("invalid token balance %q: %w", raw, err)
			}
			fmt.Fprintf(out, "%s: %s tokens\n", mint, curve.FormatTokenAmount(units))
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <token-id>",
		Short: "Show recorded trades of a curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if s.History == nil {
				return errors.New("history needs clickhouse_url to be configured")
			}
			trades, err := s.History.ByToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(trades) == 0 {
				fmt.Fprintln(out, "No trades recorded")
				return nil
			}
			fmt.Fprintln(out, tradeTable(trades))

			st := history.Summarize(trades)
			fmt.Fprintf(out, "%d trades (%d buys, %d sells), bought %s SOL, sold %s SOL\n",
				st.Trades, st.Buys, st.Sells,
				curve.FormatAssetAmount(st.BuyVolume), curve.FormatAssetAmount(st.SellVolume))
			return nil
		},
	}
}

func tradeTable(trades []history.Trade) string {
	p := style.DefaultPalette()
	styles := style.DefaultStyles(p)
	buy := styles.Cell.Foreground(p.Buy)
	sell := styles.Cell.Foreground(p.Sell)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Border).
		Headers("TIME", "SIDE", "TOKENS", "SOL", "PRICE (SOL)", "PROGRESS", "SIGNATURE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.Header
			case col == 1 && trades[row].Direction == curve.Buy.String():
				return buy
			case col == 1:
				return sell
			}
			return styles.Cell
		})
	for _, tr := range trades {
		t.Row(
			tr.Timestamp.Local().Format(time.DateTime),
			tr.Direction,
			curve.FormatTokenAmount(tr.TokenAmount),
			curve.FormatAssetAmount(tr.AssetAmount),
			curve.DisplayPrice(tr.Price).String(),
			tr.ProgressPercent.StringFixed(2)+"%",
			tr.Signature,
		)
	}
	return t.String()
}
