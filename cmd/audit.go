// -- cmd/audit.go --
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/vulnexplain/internal/audit"
	"github.com/xkilldash9x/vulnexplain/internal/config"
	"github.com/xkilldash9x/vulnexplain/internal/llmclient"
	"github.com/xkilldash9x/vulnexplain/internal/observability"
	"github.com/xkilldash9x/vulnexplain/internal/repofetch"
	"github.com/xkilldash9x/vulnexplain/internal/reporting"
)

var (
	auditRepoURL      string
	auditOutputFormat string
	auditOutputPath   string
)

var auditCmd = &cobra.Command{
	Use:   "audit [file]",
	Short: "Run a one-shot security audit of a source file, stdin or a GitHub repository.",
	Long: `Audits code without starting the HTTP server. Reads a source file
(or stdin when the argument is "-"), or fetches a public GitHub repository
with --repo, and writes the audit report to stdout or --output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		logger := observability.GetLogger()
		defer observability.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if auditRepoURL == "" && len(args) == 0 {
			return fmt.Errorf("provide a file argument, \"-\" for stdin, or --repo")
		}

		llm, err := llmclient.NewClient(cfg.LLM, logger)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}

		// One-shot runs never persist; results go to the report writer.
		auditor, err := audit.New(llm, nil, ratesFromConfig(cfg.Audit), generationOptions(cfg.LLM), logger)
		if err != nil {
			return fmt.Errorf("failed to create auditor: %w", err)
		}

		var content, label string
		switch {
		case auditRepoURL != "":
			owner, repo, err := repofetch.ParseRepoURL(auditRepoURL)
			if err != nil {
				return err
			}
			fetcher := repofetch.New(cfg.GitHub, logger)
			content, err = fetcher.FetchRepo(ctx, owner, repo)
			if err != nil {
				return err
			}
			label = fmt.Sprintf("GitHub repository %s/%s", owner, repo)
		case args[0] == "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			content, label = string(data), "code snippet"
		default:
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			content, label = string(data), fmt.Sprintf("uploaded file (%s)", filepath.Base(args[0]))
		}

		result, err := auditor.Run(ctx, content, label)
		if err != nil {
			return err
		}

		reporter, err := reporting.New(auditOutputFormat, auditOutputPath)
		if err != nil {
			return err
		}
		defer reporter.Close()
		return reporter.Write(result)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditRepoURL, "repo", "", "public GitHub repository URL to audit")
	auditCmd.Flags().StringVarP(&auditOutputFormat, "format", "f", "json", "report format: json or html")
	auditCmd.Flags().StringVarP(&auditOutputPath, "output", "o", "", "report output path (default stdout)")
	rootCmd.AddCommand(auditCmd)
}
