package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"wmguard/internal/app"
	"wmguard/internal/config"
	"wmguard/internal/guard"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GuardApp. The caller must
// defer a.Close().
func newApp(cmd *cobra.Command) (*app.GuardApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewGuardApp(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts for a passphrase without echo. Confirmation
// is requested when confirm is true (key generation).
func readPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if !confirm {
		return string(pass), nil
	}

	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	again, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(pass) != string(again) {
		return "", fmt.Errorf("passphrases do not match")
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "wmguard",
	Short: "Identity-preserving image watermark pipeline",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Catalog:    %s\n", cfg.Catalog.Type)
		fmt.Printf("Blob Store: %s\n", cfg.BlobStore.Type)
		fmt.Printf("Oracle:     %s (timeout %s)\n", cfg.Oracle.BaseURL, cfg.Oracle.TimeoutOrDefault())
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

// keys command

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair protecting pristine copies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase(true)
		if err != nil {
			return err
		}
		if err := a.SetupKeys(passphrase); err != nil {
			return err
		}
		fmt.Println("Key pair generated.")
		return nil
	},
}

// user command

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage registered parties",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a party",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.RegisterUser(cmd.Context(), name, email)
		if err != nil {
			return err
		}
		fmt.Printf("Registered user #%d (%s)\n", u.ID, u.Email)
		return nil
	},
}

// protect command

var protectCmd = &cobra.Command{
	Use:   "protect IMAGE",
	Short: "Watermark an image and register it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetInt64("owner")
		algorithm, _ := cmd.Flags().GetString("algorithm")
		copyright, _ := cmd.Flags().GetString("copyright")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.Protect(cmd.Context(), args[0], copyright, algorithm, ownerID)
		if err != nil {
			return fmt.Errorf("protect failed: %w", err)
		}

		fmt.Printf("Asset #%d protected (%s, %s)\n", asset.ID, asset.Filename, asset.Algorithm)
		fmt.Printf("Watermarked copy: %s\n", asset.MarkedPath)
		return nil
	},
}

// verify command

var verifyCmd = &cobra.Command{
	Use:   "verify IMAGE",
	Short: "Check an image for an embedded watermark and tampering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verifierID, _ := cmd.Flags().GetInt64("verifier")
		algorithm, _ := cmd.Flags().GetString("algorithm")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, notification, err := a.Verify(cmd.Context(), args[0], algorithm, verifierID)
		if err != nil {
			if errors.Is(err, guard.ErrCatalogInconsistent) {
				return fmt.Errorf("watermark recovered but no matching asset exists; the catalog may be inconsistent: %w", err)
			}
			return fmt.Errorf("verify failed: %w", err)
		}

		fmt.Printf("Token: %s\n", outcome.Token)
		if !outcome.Marked {
			fmt.Println("No watermark recovered.")
			return nil
		}

		fmt.Printf("Asset: #%d (relation: %s)\n", *outcome.AssetID, outcome.Relation)
		if outcome.CorrectedBits > 0 {
			fmt.Printf("Recovered after correcting %d bit error(s)\n", outcome.CorrectedBits)
		}
		if outcome.RatioDegraded {
			fmt.Printf("Tampering (estimate): %.2f%%\n", outcome.Ratio)
		} else {
			fmt.Printf("Tampering: %.2f%%\n", outcome.Ratio)
		}
		if notification.Kind != guard.NotifyNone {
			fmt.Printf("Notification: %s -> %s\n", notification.Kind, notification.OwnerContact)
		}
		return nil
	},
}

// export command

var exportCmd = &cobra.Command{
	Use:   "export ASSET_ID",
	Short: "Export an asset's pristine copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		var assetID int64
		if _, err := fmt.Sscanf(args[0], "%d", &assetID); err != nil {
			return fmt.Errorf("invalid asset id %q", args[0])
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase(false)
			if err != nil {
				return err
			}
		}

		if err := a.Export(cmd.Context(), assetID, out, passphrase); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Pristine copy written to %s\n", out)
		return nil
	},
}

// record command

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect verification records",
}

var recordShowCmd = &cobra.Command{
	Use:   "show TOKEN",
	Short: "Show one verification record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Record(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Token:     %s\n", r.Token)
		fmt.Printf("Filename:  %s\n", r.Filename)
		fmt.Printf("Algorithm: %s\n", r.Algorithm)
		fmt.Printf("Verified:  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		if !r.Marked {
			fmt.Println("Watermark: none")
			return nil
		}
		fmt.Printf("Asset:     #%d\n", *r.AssetID)
		if r.Ratio != nil {
			fmt.Printf("Tampering: %.2f%%\n", *r.Ratio)
		}
		if r.ReportedAt != nil {
			fmt.Printf("Reported:  %s\n", r.ReportedAt.Format("2006-01-02 15:04:05"))
			if r.ReportLink != "" {
				fmt.Printf("  Link: %s\n", r.ReportLink)
			}
			if r.ReportText != "" {
				fmt.Printf("  Text: %s\n", r.ReportText)
			}
		}
		return nil
	},
}

var recordReportCmd = &cobra.Command{
	Use:   "report TOKEN",
	Short: "Report where a forged copy was found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verifierID, _ := cmd.Flags().GetInt64("verifier")
		link, _ := cmd.Flags().GetString("link")
		text, _ := cmd.Flags().GetString("text")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Report(cmd.Context(), args[0], verifierID, link, text); err != nil {
			return fmt.Errorf("report rejected: %w", err)
		}
		fmt.Println("Report attached.")
		return nil
	},
}

// history command

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View a party's uploads and verifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.History(cmd.Context(), userID, limit, offset)
		if err != nil {
			return err
		}

		fmt.Printf("Assets (%d):\n", h.AssetCount)
		for _, asset := range h.Assets {
			fmt.Printf("  #%d  %-20s  %-10s  %s\n",
				asset.ID, asset.Filename, asset.Algorithm,
				asset.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		fmt.Printf("Verifications (%d):\n", h.VerificationCount)
		for _, r := range h.Verifications {
			ratio := "-"
			if r.Ratio != nil {
				ratio = fmt.Sprintf("%.2f%%", *r.Ratio)
			}
			fmt.Printf("  %s  %-20s  marked=%-5t  %s  %s\n",
				r.Token, r.Filename, r.Marked, ratio,
				r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	keysCmd.AddCommand(keysInitCmd)
	rootCmd.AddCommand(keysCmd)

	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("email", "", "Contact email")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)

	protectCmd.Flags().Int64("owner", 0, "Owner user ID")
	protectCmd.Flags().String("algorithm", "EditGuard", "Protection algorithm (EditGuard, OmniGuard, RobustWide)")
	protectCmd.Flags().String("copyright", "", "Copyright note")
	rootCmd.AddCommand(protectCmd)

	verifyCmd.Flags().Int64("verifier", 0, "Verifying user ID")
	verifyCmd.Flags().String("algorithm", "EditGuard", "Protection algorithm (EditGuard, OmniGuard, RobustWide)")
	rootCmd.AddCommand(verifyCmd)

	exportCmd.Flags().String("out", "pristine.png", "Output file")
	rootCmd.AddCommand(exportCmd)

	recordReportCmd.Flags().Int64("verifier", 0, "Verifying user ID")
	recordReportCmd.Flags().String("link", "", "Where the copy was found")
	recordReportCmd.Flags().String("text", "", "Free-text description")
	recordCmd.AddCommand(recordShowCmd)
	recordCmd.AddCommand(recordReportCmd)
	rootCmd.AddCommand(recordCmd)

	historyCmd.Flags().Int64("user", 0, "User ID")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum entries to show")
	historyCmd.Flags().Int("offset", 0, "Entries to skip")
	rootCmd.AddCommand(historyCmd)
}
