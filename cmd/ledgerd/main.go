package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/ledger"
	"github.com/infosec-bank/ledger/internal/transport"
	"github.com/infosec-bank/ledger/internal/wallet"
)

func main() {
	cfg := config.Load()

	root := &cobra.Command{Use: "ledgerd", Short: "InfoSec Bank ledger daemon"}
	root.AddCommand(serveCmd(cfg))
	root.AddCommand(registerCmd(cfg))
	root.AddCommand(sendCmd(cfg))
	root.AddCommand(chainCmd(cfg))
	root.AddCommand(balanceCmd(cfg))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openCore(cfg *config.Config) (*certs.CA, *ledger.Blockchain, error) {
	ca, err := certs.NewCertificateAuthority(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open certificate authority: %w", err)
	}
	bc, err := ledger.NewBlockchain(cfg.DataDir, cfg.Difficulty)
	if err != nil {
		return nil, nil, fmt.Errorf("open blockchain: %w", err)
	}
	return ca, bc, nil
}

func serveCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.ListenAddr = addr
			}
			ca, bc, err := openCore(cfg)
			if err != nil {
				return err
			}
			srv := transport.NewServer(cfg, ca, bc)
			fmt.Printf("listening on %s\n", cfg.ListenAddr)
			return http.ListenAndServe(cfg.ListenAddr, srv.Router())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override the configured listen address")
	return cmd
}

func registerCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "register [user-id]",
		Short: "register a new wallet and request a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ca, _, err := openCore(cfg)
			if err != nil {
				return err
			}
			w, err := wallet.Register(cfg.DataDir, args[0], ca)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s, certificate serial %s\n", w.UserID, w.Certificate.SerialNumber)
			return nil
		},
	}
}

func sendCmd(cfg *config.Config) *cobra.Command {
	var memo string
	cmd := &cobra.Command{
		Use:   "send [from] [to] [amount]",
		Short: "sign and submit a transfer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ca, bc, err := openCore(cfg)
			if err != nil {
				return err
			}
			sender, err := wallet.Open(cfg.DataDir, args[0])
			if err != nil {
				return err
			}
			receiver, err := wallet.Open(cfg.DataDir, args[1])
			if err != nil {
				return err
			}
			var amount float64
			if _, err := fmt.Sscanf(args[2], "%f", &amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}

			tx, err := sender.Send(args[1], amount, ledger.TxTransfer, memo, receiver.PublicKey())
			if err != nil {
				return err
			}
			if !tx.Validate(ca) {
				return fmt.Errorf("built transaction failed local validation before submission")
			}
			block, err := bc.AddBlock(*tx)
			if err != nil {
				return err
			}
			fmt.Printf("mined into block %d, hash %s\n", block.Index, block.Hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&memo, "memo", "", "memo to encrypt for the receiver")
	return cmd
}

func chainCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "print chain height and validity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ca, bc, err := openCore(cfg)
			if err != nil {
				return err
			}
			valid, firstBadIndex := bc.IsValid(ca)
			fmt.Printf("height=%d valid=%v first_bad_index=%d\n", bc.Height(), valid, firstBadIndex)
			return nil
		},
	}
}

func balanceCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [user-id]",
		Short: "print a replayed account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ca, bc, err := openCore(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("%s balance: %.2f\n", args[0], ledger.ReplayBalances(bc, ca, args[0]))
			return nil
		},
	}
}
