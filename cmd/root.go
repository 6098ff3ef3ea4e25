package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/gotale/internal/config"
	"github.com/itsmostafa/gotale/internal/console"
	"github.com/itsmostafa/gotale/internal/logging"
	"github.com/itsmostafa/gotale/internal/player"
	"github.com/itsmostafa/gotale/internal/story"
	"github.com/itsmostafa/gotale/internal/version"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitFatal = 1
	ExitUsage = 2
)

const missingStoryMessage = "Story filename not specified."

// UsageError reports a malformed command line.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// storyArg requires exactly one story file argument.
func storyArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &UsageError{Msg: missingStoryMessage}
	}
	return nil
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gotale [flags] <story-file>",
		Short: "Play interactive Twee stories in the terminal",
		Long: `gotale plays a Twee 3 story in the console. Narrative text is printed until
the story branches, then the numbered choices are listed and the selected one
is read from standard input. Play ends when the story has nothing left.`,
		Args:          storyArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return playStory(cmd, *cfg, args[0])
		},
	}

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate(fmt.Sprintf("gotale %s\n", version.String()))
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	// Flag defaults come from the GOTALE_* environment
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Color, "color", cfg.Color, "Color output (auto, always, never)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append JSON logs to this file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Start, "start", cfg.Start, "Passage to start from instead of the story's own")
	rootCmd.Flags().DurationVar(&cfg.ExprTimeout, "expr-timeout", cfg.ExprTimeout, "Time limit for a single story expression (0 = none)")

	rootCmd.AddCommand(newCheckCmd(cfg))

	return rootCmd
}

func playStory(cmd *cobra.Command, cfg config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	doc, err := story.LoadDocument(path)
	if err != nil {
		return err
	}

	s, err := story.New(doc.Text,
		story.WithLogger(logger),
		story.WithExprTimeout(cfg.ExprTimeout),
		story.WithStartPassage(cfg.Start),
	)
	if err != nil {
		return fmt.Errorf("failed to start story %s: %w", path, err)
	}
	logger.Info().Str("path", path).Str("title", s.Title()).Msg("story loaded")

	out := cmd.OutOrStdout()
	return player.Run(player.Config{
		Engine: s,
		Input:  cmd.InOrStdin(),
		Output: out,
		Errors: cmd.ErrOrStderr(),
		Color:  cfg.ColorMode().Resolve(console.DetectColor(out)),
		Logger: logger,
	})
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFatal
	}

	rootCmd := newRootCmd(&cfg)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(stdout, usageErr.Msg)
		fmt.Fprint(stdout, cmd.UsageString())
		return ExitUsage
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFatal
}

// Execute runs the root command and exits the process
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
