package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			_, fp, err := appCtx.IDs.CreateClient(passphrase, []byte(identity))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity to put in your credential, e.g. an email address")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := appCtx.IDs.FingerprintIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}
}

func keyPackageCmd() *cobra.Command {
	var (
		count int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "key-package",
		Short: "Generate key packages and write them to --out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			pkgs, err := appCtx.KeyPackages.GenerateKeyPackages(passphrase, count)
			if err != nil {
				return err
			}
			for _, kp := range pkgs {
				path, err := writeKeyPackage(out, kp)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of key packages")
	cmd.Flags().StringVar(&out, "out", ".", "directory to write key packages to")
	return cmd
}
