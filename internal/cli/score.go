package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ats-backend/internal/analyses"
	"ats-backend/internal/bootstrap"
	"ats-backend/internal/shared/config"
)

const cliUser = "cli"

func newScoreCommand(base config.Config, resolve func() (options, error)) *cobra.Command {
	var (
		targetRole string
		jdFile     string
	)
	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Run the full scoring pipeline on a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolve()
			if err != nil {
				return err
			}
			f, err := readInput(args[0])
			if err != nil {
				return err
			}
			sub, source, err := f.submission(cliUser)
			if err != nil {
				return err
			}
			sub.TargetRole = targetRole
			if jdFile != "" {
				jd, err := os.ReadFile(jdFile)
				if err != nil {
					return fmt.Errorf("read job description: %w", err)
				}
				sub.JobDescription = string(jd)
			}

			cfg := base
			cfg.LLMProvider = opts.provider
			cfg.LLMModel = opts.model
			cfg.LLMTimeout = opts.timeout
			client, err := bootstrap.NewLLM(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			svc := &analyses.Service{
				Repo:          analyses.NewMemoryRepo(),
				Documents:     source,
				LLM:           client,
				Provider:      cfg.LLMProvider,
				Model:         cfg.LLMModel,
				PromptVersion: cfg.PromptVersion,
				Timeout:       cfg.LLMTimeout,
			}

			out, err := svc.Run(cmd.Context(), sub)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			renderOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetRole, "target-role", "", "role the resume is scored against")
	cmd.Flags().StringVar(&jdFile, "jd", "", "file holding the job description")
	return cmd
}
