package cli

import (
	"fmt"

	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/style"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create adt configuration files",
		Long: `adt reads the global config file, then the project's .adt-config.toml,
then ADT_* environment variables, then --set overrides. Later layers win.`,
	}
	cmd.AddCommand(a.configPathCmd(), a.configShowCmd(), a.configInitCmd())
	return cmd
}

func (a *app) configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, f := range []struct{ name, path string }{
				{config.LayerGlobal, config.GlobalFile()},
				{config.LayerProject, config.ProjectFile(a.projectDir())},
			} {
				ok, _ := afero.Exists(a.fs, f.path)
				status := ""
				if !ok {
					status = style.Dim(" (not present)")
				}
				fmt.Fprintf(w, "%-8s %s%s\n", f.name, f.path, status)
			}
			return nil
		},
	}
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) configInitCmd() *cobra.Command {
	var project, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented starter config file",
		Long:  "Writes the global config file, or .adt-config.toml in the project with --project.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GlobalFile()
			if project {
				path = config.ProjectFile(a.projectDir())
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "write the project config instead of the global one")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing file")
	return cmd
}
