package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/migvista/migvista/internal/alembic"
	"github.com/migvista/migvista/internal/config"
	"github.com/migvista/migvista/internal/server"
)

// NewRootCommand builds the migvista command. Flags override the
// config file, which overrides defaults.
func NewRootCommand(version string) *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "migvista",
		Short:         "Interactive revision graph for an Alembic project",
		Long:          "migvista parses alembic's history output into a revision dependency graph\nand serves it to a browser visualization, refreshing on migration changes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfgPath, "config", "c", "", "config file (default "+config.DefaultFile+")")
	flags.String("project", "", "path into the alembic project")
	flags.String("port", "", "port to serve on")
	flags.String("alembic", "", "alembic executable")
	flags.String("web", "", "directory of visualization assets")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		// Alembic environments usually pick the database URL up from
		// the environment; a project .env is loaded if present.
		if err := godotenv.Load(); err == nil {
			log.Println("Loaded environment from .env")
		}

		project, err := alembic.FindProject(cfg.Project)
		if err != nil {
			return err
		}

		runner := alembic.NewRunner(project, cfg.Alembic)
		srv := server.NewServer(project, runner, runner, server.Options{
			Port:     cfg.Port,
			WebDir:   cfg.WebDir,
			Debounce: time.Duration(cfg.DebounceMs) * time.Millisecond,
		})

		fmt.Printf("migvista serving %s at http://localhost:%s\n", project.Name(), cfg.Port)
		return srv.Start()
	}

	return cmd
}

// applyFlags copies explicitly set flags over the file config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := map[string]*string{
		"project": &cfg.Project,
		"port":    &cfg.Port,
		"alembic": &cfg.Alembic,
		"web":     &cfg.WebDir,
	}
	for name, dst := range set {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
}
