// Package cli implements atsctl, the operator command line for running the
// scoring pipeline against local files.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ats-backend/internal/shared/config"
)

// Version is stamped at build time.
var Version = "dev"

const envPrefix = "ATS"

// options is the resolved flag and ATS_* environment view.
type options struct {
	provider string
	model    string
	timeout  time.Duration
	output   string
}

// NewRootCommand builds the atsctl command tree. base supplies the service
// configuration that flags and ATS_* variables override.
func NewRootCommand(base config.Config, stdout io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("provider", base.LLMProvider)
	v.SetDefault("model", base.LLMModel)
	v.SetDefault("timeout", base.LLMTimeout)
	v.SetDefault("output", "text")

	root := &cobra.Command{
		Use:           "atsctl",
		Short:         "Score resumes and profiles with the ATS pipeline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.String("provider", "", "inference provider: heuristic, openai or gemini")
	flags.String("model", "", "model name passed to the provider")
	flags.Duration("timeout", 0, "bound on the single inference call")
	flags.StringP("output", "o", "", "output format: text or json")
	for _, name := range []string{"provider", "model", "timeout", "output"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	resolve := func() (options, error) {
		opts := options{
			provider: strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
			model:    v.GetString("model"),
			timeout:  v.GetDuration("timeout"),
			output:   strings.ToLower(v.GetString("output")),
		}
		if opts.output != "text" && opts.output != "json" {
			return options{}, fmt.Errorf("unknown output format %q", opts.output)
		}
		return opts, nil
	}

	root.AddCommand(
		newSectionsCommand(resolve),
		newScoreCommand(base, resolve),
	)
	return root
}

// Execute runs atsctl with ctx canceled on interrupt.
func Execute(ctx context.Context, base config.Config, stdout io.Writer, args []string) error {
	root := NewRootCommand(base, stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
