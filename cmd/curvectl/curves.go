package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/export"
	"github.com/rovshanmuradov/launchlab/internal/trade"
	"github.com/rovshanmuradov/launchlab/internal/ui/style"
)

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <token-id>",
		Short: "Launch a new bonding curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			supplyFlag, _ := cmd.Flags().GetString("supply")
			supply, err := curve.ParseTokenAmount(supplyFlag)
			if err != nil {
				return fmt.Errorf("invalid --supply: %w", err)
			}
			meta := curve.Metadata{}
			meta.Name, _ = cmd.Flags().GetString("name")
			meta.Symbol, _ = cmd.Flags().GetString("symbol")
			meta.Image, _ = cmd.Flags().GetString("image")
			meta.Description, _ = cmd.Flags().GetString("description")

			rec, err := s.Trades.Launch(cmd.Context(), args[0], supply, meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) supply %s at %s SOL\n",
				rec.TokenID, rec.Metadata.Symbol,
				curve.FormatTokenAmount(rec.TotalSupply),
				curve.DisplayPrice(rec.CurrentPrice))
			return nil
		},
	}
	cmd.Flags().String("name", "", "token name")
	cmd.Flags().String("symbol", "", "token symbol")
	cmd.Flags().String("image", "", "token image URL")
	cmd.Flags().String("description", "", "token description")
	cmd.Flags().String("supply", curve.FormatTokenAmount(curve.DefaultTotalSupply), "curve allocation in whole tokens")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <token-id> <buy|sell> <amount>",
		Short: "Estimate a trade without executing it",
		Long:  "Amounts are in SOL for buys and in whole tokens for sells.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			dir, err := curve.ParseDirection(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch dir {
			case curve.Buy:
				lamports, err := curve.ParseAssetAmount(args[2])
				if err != nil {
					return err
				}
				q, err := s.Trades.QuoteBuy(cmd.Context(), args[0], lamports)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Buy %s SOL -> %s tokens\n", curve.FormatAssetAmount(q.AssetCost), curve.FormatTokenAmount(q.OutputTokenAmount))
				fmt.Fprintf(out, "Price %s -> %s SOL (impact %s%%)\n",
					curve.DisplayPrice(q.SpotPrice), curve.DisplayPrice(q.NewPrice), q.PriceImpactPercent.StringFixed(2))
				if q.Capped {
					fmt.Fprintln(out, "Output capped at the remaining supply")
				}
			default:
				units, err := curve.ParseTokenAmount(args[2])
				if err != nil {
					return err
				}
				q, err := s.Trades.QuoteSell(cmd.Context(), args[0], units)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Sell %s tokens -> %s SOL\n", curve.FormatTokenAmount(q.InputTokenAmount), curve.FormatAssetAmount(q.OutputAssetAmount))
				fmt.Fprintf(out, "Price %s -> %s SOL (impact %s%%)\n",
					curve.DisplayPrice(q.SpotPrice), curve.DisplayPrice(q.NewPrice), q.PriceImpactPercent.StringFixed(2))
			}
			return nil
		},
	}
}

func newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <token-id> <sol>",
		Short: "Buy tokens from a curve",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			lamports, err := curve.ParseAssetAmount(args[1])
			if err != nil {
				return err
			}
			res, err := s.Trades.Buy(cmd.Context(), args[0], lamports)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newSellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sell <token-id> <tokens>",
		Short: "Sell tokens back to a curve",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			units, err := curve.ParseTokenAmount(args[1])
			if err != nil {
				return err
			}
			res, err := s.Trades.Sell(cmd.Context(), args[0], units)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printResult(out io.Writer, res trade.Result) {
	fmt.Fprintf(out, "%s %s tokens for %s SOL\n",
		res.Direction, curve.FormatTokenAmount(res.TokenAmount), curve.FormatAssetAmount(res.AssetAmount))
	fmt.Fprintf(out, "Signature %s\n", res.Signature)
	fmt.Fprintf(out, "Price %s SOL, progress %s%%\n",
		curve.DisplayPrice(res.Record.CurrentPrice), res.Record.ProgressPercent.StringFixed(2))
	if res.Capped {
		fmt.Fprintln(out, "Output capped at the remaining supply")
	}
	if res.Completed {
		fmt.Fprintln(out, "Curve complete")
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all curves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			records, err := s.Store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]export.CurveJSON, 0, len(records))
			for _, rec := range records {
				rows = append(rows, export.NewCurveJSON(curve.Summarize(rec)))
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			fmt.Fprintln(cmd.OutOrStdout(), curveTable(rows))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func curveTable(rows []export.CurveJSON) string {
	styles := style.DefaultStyles(style.DefaultPalette())
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Border).
		Headers("TOKEN", "SYMBOL", "PRICE (SOL)", "PROGRESS", "COLLECTED (SOL)", "MCAP (SOL)", "CREATED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		})
	for _, c := range rows {
		progress := c.ProgressPercent + "%"
		if c.Complete {
			progress = styles.Complete.Render("complete")
		}
		t.Row(c.TokenID, c.Symbol, c.PriceSOL, progress, c.RealSOLReserves, c.MarketCapSOL,
			c.CreatedAt.Local().Format(time.DateTime))
	}
	return t.String()
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the curve listing to a CSV or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := exportOptions(cmd)
			if err != nil {
				return err
			}

			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			records, err := s.Store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			path, err := export.NewCurveExporter(s.Logger).ExportCurves(records, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().String("format", string(export.FormatCSV), "output format (csv, json)")
	cmd.Flags().String("status", "", "only active or complete curves")
	cmd.Flags().String("token", "", "only this token id")
	cmd.Flags().String("after", "", "only curves created after this RFC3339 time")
	cmd.Flags().String("before", "", "only curves created before this RFC3339 time")
	cmd.Flags().String("out-dir", "exports", "output directory")
	return cmd
}

func exportOptions(cmd *cobra.Command) (export.ExportOptions, error) {
	f := cmd.Flags()
	format, _ := f.GetString("format")
	status, _ := f.GetString("status")
	token, _ := f.GetString("token")
	outDir, _ := f.GetString("out-dir")

	opts := export.ExportOptions{
		Format:      export.ExportFormat(format),
		Status:      export.Status(status),
		TokenFilter: token,
		OutputDir:   outDir,
	}
	switch opts.Format {
	case export.FormatCSV, export.FormatJSON:
	default:
		return opts, fmt.Errorf("unsupported format %q", format)
	}
	switch opts.Status {
	case export.StatusAll, export.StatusActive, export.StatusComplete:
	default:
		return opts, fmt.Errorf("unsupported status %q", status)
	}

	for name, dst := range map[string]*time.Time{"after": &opts.CreatedAfter, "before": &opts.CreatedBefore} {
		raw, _ := f.GetString(name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = ts
	}
	return opts, nil
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete stored curves that can no longer be decoded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := open(cmd)
			if err != nil {
				return err
			}
			defer done()

			removed, err := s.Store.PurgeCorrupt(cmd.Context())
			for _, id := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d corrupted entries removed\n", len(removed))
			return nil
		},
	}
}
