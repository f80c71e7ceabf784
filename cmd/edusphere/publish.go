package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"edusphere/internal/catalog"
)

// writeOutput calls write with the file named by path, or stdout when path
// is empty or "-". Files are written to a temp file and renamed into place.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".edusphere-*.tmp")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current catalog as a seed document",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return writeOutput(cmd, output, a.Export)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the current catalog to every configured vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		pubs, err := a.Publish()
		for _, p := range pubs {
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s v%d to %s (%d bytes)\n", p.Name, p.Version, p.Vault, p.Size)
		}
		return err
	},
}

var publishHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "View publish history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pubs, err := a.Publications()
		if err != nil {
			return err
		}
		if len(pubs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing published yet.")
			return nil
		}
		if limit > 0 && len(pubs) > limit {
			pubs = pubs[:limit]
		}

		rows := make([][]string, 0, len(pubs))
		for _, p := range pubs {
			rows = append(rows, []string{
				p.PublishedAt.Local().Format("2006-01-02 15:04:05"),
				p.Vault,
				p.Name,
				strconv.FormatInt(p.Version, 10),
				strconv.FormatInt(p.Size, 10),
			})
		}
		printTable(cmd.OutOrStdout(), []string{"Published", "Vault", "Name", "Version", "Size"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight})
		return nil
	},
}

var publishFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and decrypt the published catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.Config().Encryption.Type == "age" {
			passphrase, err = promptSecret(cmd, "Passphrase")
			if err != nil {
				return err
			}
		}

		c, err := a.FetchPublished(vaultName, passphrase)
		if err != nil {
			return err
		}
		return writeOutput(cmd, output, func(w io.Writer) error {
			return catalog.Encode(w, c)
		})
	},
}

var publishKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair that seals published catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Config().Encryption.Type != "age" {
			fmt.Fprintf(cmd.OutOrStdout(), "Encryption type %q needs no keys.\n", a.Config().Encryption.Type)
			return nil
		}
		passphrase, err := promptNewSecret(cmd, "Passphrase")
		if err != nil {
			return err
		}
		if err := a.SetupEncryption(passphrase); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Keys written to %s and %s\n",
			a.Config().Encryption.PublicKeyPath, a.Config().Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	publishCmd.AddCommand(publishHistoryCmd)
	publishHistoryCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	publishCmd.AddCommand(publishFetchCmd)
	publishFetchCmd.Flags().String("vault", "", "Vault name (default: the first configured vault)")
	publishFetchCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	publishCmd.AddCommand(publishKeysCmd)
}
