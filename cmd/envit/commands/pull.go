package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/envit/internal/config"
	"github.com/systmms/envit/internal/envfile"
	"github.com/systmms/envit/internal/logging"
	"github.com/systmms/envit/internal/resolve"
	"github.com/systmms/envit/internal/sources"
)

func NewPullCommand(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull secrets into the env file",
		Long: `Pull lists the secrets in the configured store, maps each one to a
variable name (the map section wins, otherwise the name is derived by
upper-casing and replacing dashes), fetches the values, and merges them
into the env file. Lines the store does not own -- comments, blank lines,
local-only variables -- are preserved byte for byte, and the file is
replaced atomically.

With --dry-run the merge runs normally but only a redacted change report
is printed; secret values never appear in output under any flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			def := cfg.Definition
			envPath := cfg.EnvFilePath()

			// A missing env file must fail before any store interaction
			// when create_if_missing is off.
			existing, err := envfile.Load(envPath, def.Output.ShouldCreateMissing())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := sources.Build(ctx, def.Provider)
			if err != nil {
				return err
			}
			cfg.Logger.Debug("using secret source: %s", src.Name())

			descriptors, err := src.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list secrets: %w", err)
			}
			cfg.Logger.Debug("store listed %d secrets", len(descriptors))

			mappings, err := resolve.Resolve(descriptors, def.Map)
			if err != nil {
				return err
			}

			updates, err := resolve.FetchValues(ctx, src, mappings)
			if err != nil {
				return err
			}
			for _, m := range mappings {
				if value, ok := updates[m.Variable]; ok {
					cfg.Logger.Debug("fetched %s as %s=%s", m.Secret, m.Variable, logging.Secret(value))
				}
			}

			merged, changes := envfile.Merge(existing, updates)
			cfg.Logger.Debug("merged document:\n%s", logging.Redact(merged, secretValues(updates)))

			out := cmd.OutOrStdout()
			if dryRun {
				printChanges(out, changes)
				return nil
			}

			if len(changes) == 0 {
				_, statErr := os.Stat(envPath)
				if statErr == nil {
					fmt.Fprintln(out, "No changes.")
					return nil
				}
				if !os.IsNotExist(statErr) {
					return fmt.Errorf("failed to stat env file %s: %w", envPath, statErr)
				}
				// Absent file: fall through and materialize it so the
				// target exists even when the store adds nothing.
			}

			if err := envfile.WriteAtomic(envPath, merged); err != nil {
				return err
			}

			fmt.Fprintf(out, "Updated %d keys in %s\n", len(changes), envPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show redacted changes without writing the env file")

	return cmd
}

// secretValues collects the fetched values so debug output can be scrubbed
// of every one of them.
func secretValues(updates map[string]string) []string {
	values := make([]string, 0, len(updates))
	for _, value := range updates {
		values = append(values, value)
	}
	return values
}

// printChanges writes the redacted change report. Values are never
// available here: a Change carries only the key and the kind.
func printChanges(w io.Writer, changes []envfile.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return
	}
	for _, change := range changes {
		fmt.Fprintf(w, "%s %s=********\n", change.Kind, change.Key)
	}
}
