package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/firerecord/internal/mapper"
	"github.com/rcliao/firerecord/internal/portfolio"
)

func init() {
	cmd := &cobra.Command{
		Use:   "trade <symbol>",
		Short: "Record a transaction against a stock",
		Long:  "Record a transaction against the stock with the given symbol, creating the stock first if needed.",
		Args:  cobra.ExactArgs(1),
		Run:   runTrade,
	}

	cmd.Flags().Float64P("price", "p", 0, "Transaction price (required)")
	cmd.Flags().Bool("open", false, "Mark the position open")

	cmd.MarkFlagRequired("price")

	RootCmd.AddCommand(cmd)
}

func runTrade(cmd *cobra.Command, args []string) {
	price, _ := cmd.Flags().GetFloat64("price")
	open, _ := cmd.Flags().GetBool("open")

	s, err := openSession()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	book := portfolio.New(s.client, mapper.WithLogger(s.logger))
	stock, err := book.StockBySymbol(ctx, args[0])
	if err != nil {
		exitErr("trade", err)
	}
	tx, err := book.Trade(ctx, stock, price, open)
	if err != nil {
		exitErr("trade", err)
	}
	printRecord(tx.Record)
}
