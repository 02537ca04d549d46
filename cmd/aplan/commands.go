package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/evanschultz/aplan/internal/app"
	"github.com/evanschultz/aplan/internal/config"
	"github.com/evanschultz/aplan/internal/domain"
	"github.com/evanschultz/aplan/internal/render"
	"github.com/spf13/cobra"
)

// clipboardWriter stores a package-level helper value.
var clipboardWriter = clipboard.WriteAll

// cli carries the shared state of the command tree.
type cli struct {
	opts   *globalOptions
	stdout io.Writer
	stderr io.Writer
}

// sessionFunc runs one command against an open session.
type sessionFunc func(ctx context.Context, s *session, args []string) error

// newRootCommand builds the aplan command tree.
func newRootCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{opts: opts, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "aplan",
		Short: "Plan work as a WBS tree and track earned value",
		Long: `aplan keeps a work breakdown structure per project. Leaves carry planned
value and actual cost; trunks roll them up. Task ids are dotted paths such
as 1.2.3, and "root" names the project itself.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	flags.StringVarP(&opts.project, "project", "p", "", "project id, name or slug")
	flags.StringVar(&opts.backend, "backend", "", "storage backend (sqlite|file)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "silence console logging (the dev log file still records)")

	root.AddCommand(
		c.initCommand(),
		c.projectsCommand(),
		c.addCommand(),
		c.removeCommand(),
		c.costCommand(),
		c.valueCommand(),
		c.showCommand(),
		c.listCommand(),
		c.treeCommand(),
		c.dotCommand(),
		c.statsCommand(),
		c.reportCommand(),
		c.expandCommand(),
		c.memberCommand(),
		c.historyCommand(),
		c.exportCommand(),
		c.importCommand(),
		c.pathsCommand(),
	)
	return root
}

// action opens a session around fn and logs the command flow.
func (c *cli) action(name string, fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(c.opts, c.stderr)
		if err != nil {
			return err
		}
		defer s.Close(c.stderr)

		s.logger.Debug("command flow start", "command", name, "project", s.project)
		if err := fn(cmd.Context(), s, args); err != nil {
			s.logger.Debug("command flow failed", "command", name, "err", err)
			return fmt.Errorf("run %s command: %w", name, err)
		}
		s.logger.Debug("command flow complete", "command", name)
		return nil
	}
}

func (c *cli) initCommand() *cobra.Command {
	var writeConfig bool
	cmd := &cobra.Command{
		Use:   "init NAME",
		Short: "Create a project whose root task is NAME",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.action("init", func(ctx context.Context, s *session, args []string) error {
			if writeConfig {
				written, err := config.WriteDefault(s.configPath, s.cfg)
				if err != nil {
					return err
				}
				if written {
					s.logger.Info("config written", "path", s.configPath)
				}
			}
			project, err := s.svc.CreateProject(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "created project %s (%s)\n", project.Name(), project.ID)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "write the resolved config when no config file exists")
	return cmd
}

func (c *cli) projectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: c.action("projects", func(ctx context.Context, s *session, _ []string) error {
			projects, err := s.svc.ListProjects(ctx)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				_, _ = fmt.Fprintln(c.stdout, "no projects")
				return nil
			}
			for _, p := range projects {
				_, _ = fmt.Fprintf(c.stdout, "%s\t%s\t%d tasks\t%s\n", p.ID, p.Name(), p.Tasks.Len()-1, render.StatsLine(p.Tasks.Metrics()))
			}
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm REF",
		Short: "Delete a project and its history",
		Args:  cobra.ExactArgs(1),
		RunE: c.action("projects rm", func(ctx context.Context, s *session, args []string) error {
			project, err := s.svc.DeleteProject(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "deleted project %s (%s)\n", project.Name(), project.ID)
			return nil
		}),
	})
	return cmd
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add PARENT NAME",
		Short: "Add a task under PARENT",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.action("add", func(ctx context.Context, s *session, args []string) error {
			parent, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}
			task, err := s.svc.AddTask(ctx, s.project, parent, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "added %s %s\n", task.ID, task.Name)
			return nil
		}),
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a leaf task and renumber its later siblings",
		Args:  cobra.ExactArgs(1),
		RunE: c.action("rm", func(ctx context.Context, s *session, args []string) error {
			id, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}
			task, err := s.svc.RemoveTask(ctx, s.project, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "removed %s %s\n", task.ID, task.Name)
			return nil
		}),
	}
}

func (c *cli) costCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cost ID AMOUNT",
		Short: "Record the actual cost of a leaf task, marking it done",
		Args:  cobra.ExactArgs(2),
		RunE: c.action("cost", func(ctx context.Context, s *session, args []string) error {
			id, amount, err := parseAmountArgs(args)
			if err != nil {
				return err
			}
			task, err := s.svc.SetActualCost(ctx, s.project, id, amount)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "%s actual cost %s %s\n", task.ID, render.FormatAmount(task.ActualCost), task.Status.Icon())
			return nil
		}),
	}
}

func (c *cli) valueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "value ID AMOUNT",
		Short: "Set the planned value of a leaf task",
		Args:  cobra.ExactArgs(2),
		RunE: c.action("value", func(ctx context.Context, s *session, args []string) error {
			id, amount, err := parseAmountArgs(args)
			if err != nil {
				return err
			}
			task, err := s.svc.SetPlannedValue(ctx, s.project, id, amount)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "%s planned value %s\n", task.ID, render.FormatAmount(task.PlannedValue))
			return nil
		}),
	}
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: c.action("show", func(ctx context.Context, s *session, args []string) error {
			id, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			task, err := project.Tasks.Get(id)
			if err != nil {
				return err
			}
			members, err := project.Tasks.Assignees(id)
			if err != nil {
				return err
			}
			displayID := task.ID.String()
			if task.ID.IsRoot() {
				displayID = "root"
			}
			_, _ = fmt.Fprintf(c.stdout, "id: %s\n", displayID)
			_, _ = fmt.Fprintf(c.stdout, "name: %s\n", task.Name)
			_, _ = fmt.Fprintf(c.stdout, "status: %s %s\n", task.Status, task.Status.Icon())
			_, _ = fmt.Fprintf(c.stdout, "planned_value: %s\n", render.FormatAmount(task.PlannedValue))
			_, _ = fmt.Fprintf(c.stdout, "actual_cost: %s\n", render.FormatAmount(task.ActualCost))
			_, _ = fmt.Fprintf(c.stdout, "children: %d\n", task.NumChildren)
			_, _ = fmt.Fprintf(c.stdout, "members: %s\n", strings.Join(members, ", "))
			return nil
		}),
	}
}

func (c *cli) listCommand() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks in depth-first order",
		Args:  cobra.NoArgs,
		RunE: c.action("ls", func(ctx context.Context, s *session, _ []string) error {
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			tasks, err := taskView(project.Tasks, view)
			if err != nil {
				return err
			}
			opts := s.renderOptions()
			for _, task := range tasks {
				_, _ = fmt.Fprintln(c.stdout, render.Label(project.Tasks, task, opts))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&view, "view", "all", "all|leaf|todo|in-progress|done")
	return cmd
}

func (c *cli) treeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the task tree",
		Args:  cobra.NoArgs,
		RunE: c.action("tree", func(ctx context.Context, s *session, _ []string) error {
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			return writeBlock(c.stdout, render.Tree(project.Tasks, s.renderOptions()))
		}),
	}
}

func (c *cli) dotCommand() *cobra.Command {
	var (
		outPath string
		copyOut bool
	)
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Print the task tree as a Graphviz digraph",
		Args:  cobra.NoArgs,
		RunE: c.action("dot", func(ctx context.Context, s *session, _ []string) error {
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			graph := render.DOT(project.Tasks, s.renderOptions())
			if copyOut {
				if err := clipboardWriter(graph); err != nil {
					return fmt.Errorf("copy dot to clipboard: %w", err)
				}
				s.logger.Info("dot copied to clipboard", "bytes", len(graph))
			}
			if outPath == "-" {
				return writeBlock(c.stdout, graph)
			}
			return writeOutputFile(outPath, []byte(graph))
		}),
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "also copy the digraph to the clipboard")
	return cmd
}

func (c *cli) statsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print earned-value metrics",
		Args:  cobra.NoArgs,
		RunE: c.action("stats", func(ctx context.Context, s *session, _ []string) error {
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			metrics := project.Tasks.Metrics()
			if asJSON {
				encoded, err := json.MarshalIndent(metrics, "", "  ")
				if err != nil {
					return fmt.Errorf("encode metrics json: %w", err)
				}
				return writeBlock(c.stdout, string(encoded))
			}
			return writeBlock(c.stdout, statsTable(project.Name(), metrics))
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print metrics as JSON")
	return cmd
}

func (c *cli) reportCommand() *cobra.Command {
	var (
		pretty bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a markdown status report",
		Args:  cobra.NoArgs,
		RunE: c.action("report", func(ctx context.Context, s *session, _ []string) error {
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			markdown := render.Report(project)
			if pretty {
				rendered, err := renderMarkdown(markdown, width)
				if err != nil {
					return err
				}
				markdown = rendered
			}
			return writeBlock(c.stdout, markdown)
		}),
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render the markdown for the terminal")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for --pretty")
	return cmd
}

func (c *cli) expandCommand() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Add a YAML outline of tasks in one step",
		Args:  cobra.NoArgs,
		RunE: c.action("expand", func(ctx context.Context, s *session, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--file is required")
			}
			content, err := readInput(inPath)
			if err != nil {
				return fmt.Errorf("read outline: %w", err)
			}
			doc, err := parseOutline(content)
			if err != nil {
				return err
			}
			project, err := s.svc.GetProject(ctx, s.project)
			if err != nil {
				return err
			}
			items, err := doc.items(project.Tasks)
			if err != nil {
				return err
			}
			added, err := s.svc.Expand(ctx, project.ID, items)
			if err != nil {
				return err
			}
			for _, task := range added {
				_, _ = fmt.Fprintf(c.stdout, "added %s %s\n", task.ID, task.Name)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&inPath, "file", "f", "", "outline YAML file ('-' for stdin)")
	return cmd
}

func (c *cli) memberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "member",
		Aliases: []string{"members"},
		Short:   "Manage project members and task assignments",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Register a member",
			Args:  cobra.ExactArgs(1),
			RunE: c.action("member add", func(ctx context.Context, s *session, args []string) error {
				member, err := s.svc.AddMember(ctx, s.project, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "added member %s\n", member.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm NAME",
			Short: "Remove a member and all of its assignments",
			Args:  cobra.ExactArgs(1),
			RunE: c.action("member rm", func(ctx context.Context, s *session, args []string) error {
				member, err := s.svc.RemoveMember(ctx, s.project, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "removed member %s\n", member.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List members with their assigned leaves",
			Args:  cobra.NoArgs,
			RunE: c.action("member ls", func(ctx context.Context, s *session, _ []string) error {
				project, err := s.svc.GetProject(ctx, s.project)
				if err != nil {
					return err
				}
				for _, member := range project.Members.List() {
					ids := make([]string, 0)
					for _, task := range project.Tasks.AssignedTo(member.Name) {
						ids = append(ids, task.ID.String())
					}
					_, _ = fmt.Fprintf(c.stdout, "%s\t%s\n", member.Name, strings.Join(ids, " "))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "assign ID NAME",
			Short: "Assign a member to a leaf task",
			Args:  cobra.ExactArgs(2),
			RunE: c.action("member assign", func(ctx context.Context, s *session, args []string) error {
				id, err := parseTaskArg(args[0])
				if err != nil {
					return err
				}
				task, err := s.svc.Assign(ctx, s.project, id, args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "%s members: %s\n", task.ID, strings.Join(task.Members, ", "))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "unassign ID NAME",
			Short: "Unassign a member from a leaf task",
			Args:  cobra.ExactArgs(2),
			RunE: c.action("member unassign", func(ctx context.Context, s *session, args []string) error {
				id, err := parseTaskArg(args[0])
				if err != nil {
					return err
				}
				task, err := s.svc.Unassign(ctx, s.project, id, args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "%s members: %s\n", task.ID, strings.Join(task.Members, ", "))
				return nil
			}),
		},
	)
	return cmd
}

func (c *cli) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent changes of a project",
		Args:  cobra.NoArgs,
		RunE: c.action("history", func(ctx context.Context, s *session, _ []string) error {
			events, err := s.svc.History(ctx, s.project, limit)
			if err != nil {
				return err
			}
			for _, event := range events {
				_, _ = fmt.Fprintln(c.stdout, formatEvent(event))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export projects as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: c.action("export", func(ctx context.Context, s *session, _ []string) error {
			snap, err := s.svc.ExportSnapshot(ctx, s.project)
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			encoded, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot json: %w", err)
			}
			encoded = append(encoded, '\n')
			if outPath == "-" {
				if _, err := c.stdout.Write(encoded); err != nil {
					return fmt.Errorf("write snapshot to stdout: %w", err)
				}
				return nil
			}
			return writeOutputFile(outPath, encoded)
		}),
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func (c *cli) importCommand() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON snapshot, replacing projects with the same id",
		Args:  cobra.NoArgs,
		RunE: c.action("import", func(ctx context.Context, s *session, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			content, err := readInput(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}
			if err := s.svc.ImportSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			_, _ = fmt.Fprintf(c.stdout, "imported %d projects\n", len(snap.Projects))
			return nil
		}),
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file ('-' for stdin)")
	return cmd
}

func (c *cli) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := c.opts.resolvePaths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "app: %s\n", c.opts.appName)
			_, _ = fmt.Fprintf(c.stdout, "dev_mode: %t\n", c.opts.devMode)
			_, _ = fmt.Fprintf(c.stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(c.stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(c.stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(c.stdout, "snapshots: %s\n", paths.SnapshotDir)
			_, _ = fmt.Fprintf(c.stdout, "logs: %s\n", paths.LogDir)
			return nil
		},
	}
}

// parseTaskArg parses a dotted task id; "root" names the project root.
func parseTaskArg(raw string) (domain.TaskID, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "root", ".":
		return domain.RootID(), nil
	}
	return domain.ParseTaskID(strings.TrimSpace(raw))
}

// parseAmountArgs parses an ID AMOUNT argument pair.
func parseAmountArgs(args []string) (domain.TaskID, float64, error) {
	id, err := parseTaskArg(args[0])
	if err != nil {
		return domain.TaskID{}, 0, err
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return domain.TaskID{}, 0, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, args[1])
	}
	return id, amount, nil
}

// taskView selects the tasks printed by ls.
func taskView(tasks *domain.Tasks, view string) ([]domain.Task, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", "all":
		return tasks.All(), nil
	case "leaf", "leaves":
		return tasks.Leaves(), nil
	case "todo":
		return tasks.Todo(), nil
	case "in-progress", "in_progress":
		return tasks.InProgress(), nil
	case "done":
		return tasks.Done(), nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

// formatEvent prints one history line.
func formatEvent(event domain.ChangeEvent) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "%s  %-17s", event.OccurredAt.Format(time.RFC3339), event.Operation)
	if event.TaskID != "" {
		_, _ = fmt.Fprintf(&b, " %s", event.TaskID)
	}
	for _, key := range sortedKeys(event.Metadata) {
		_, _ = fmt.Fprintf(&b, " %s=%s", key, event.Metadata[key])
	}
	return strings.TrimRight(b.String(), " ")
}

// writeBlock writes text followed by exactly one newline.
func writeBlock(w io.Writer, text string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	return err
}

// writeOutputFile writes data to path, creating parent dirs.
func writeOutputFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
