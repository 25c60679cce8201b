package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/config"
	"github.com/stepseq/stepseq/editor"
	"github.com/stepseq/stepseq/editor/gomidi"
	"github.com/stepseq/stepseq/script"
	"github.com/stepseq/stepseq/server"
	"github.com/stepseq/stepseq/storage"
	"github.com/stepseq/stepseq/version"
)

var (
	configPath string
	outputPath string
	scriptText string
	patternID  int
	bpm        float64
	addr       string
	watch      bool
	cfg        config.Config
)

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stepseq",
	Short: "Edit step sequencer projects",
	Long: `stepseq edits step sequencer projects: drum patterns of on/off steps and a
playlist arranging the patterns, with undo and redo for every change.

Examples:
  stepseq new song.yml
  stepseq edit song.yml -e 'toggle 1 0 0'
  stepseq show song.yml
  stepseq export-midi song.yml -o song.mid
  stepseq serve song.yml --addr :8080`,
	Version:       version.VersionOrHash,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.Path()
		}
		var err error
		cfg, err = config.Load(path)
		return err
	},
}

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Write a new project with the default kit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		return newModel().Save(args[0])
	},
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the patterns and the playlist of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openModel(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		tr := m.Transport()
		ts := tr.State().TimeSignature
		fmt.Fprintf(w, "%s bpm, %d/%d, %s steps, loop %t, metronome %t\n", tr.BPM().String(), ts.Numerator, ts.Denominator,
			m.Channels().Width().String(), tr.Loop().Value(), tr.Metronome().Value())
		printSnapshot(w, m.Snapshot())
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <file> [script]",
	Short: "Run edit commands on a project and save it",
	Long: `Runs edit commands on a project and saves it. The commands are read from
the -e flag, from the script file, or from standard input, one per line.
Run "stepseq commands" for the list of commands.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openModel(args[0])
		if err != nil {
			return err
		}
		var r io.Reader = cmd.InOrStdin()
		switch {
		case scriptText != "":
			r = strings.NewReader(scriptText)
		case len(args) == 2:
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		n, err := script.Run(m, r)
		if err != nil {
			return err
		}
		out := outputPath
		if out == "" {
			out = args[0]
		}
		if err := m.Save(out); err != nil {
			return err
		}
		log.Printf("%d changes, saved %s", n, out)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export-midi <file>",
	Short: "Export the arrangement, or one pattern, as a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return errors.New("the output file is required (-o)")
		}
		m, err := openModel(args[0])
		if err != nil {
			return err
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		e := gomidi.DefaultExporter().WithTransport(m.Transport().State())
		if bpm > 0 {
			e.BPM = stepseq.ClampBPM(bpm)
		}
		if patternID > 0 {
			err = e.ExportPattern(f, m.Snapshot().Channels, stepseq.PatternID(patternID))
		} else {
			err = e.ExportArrangement(f, m.Snapshot())
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the editor over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		opts := server.Options{MaxHistory: cfg.History.MaxLength, Watch: cfg.Server.Watch || watch}
		if len(args) == 1 {
			opts.ProjectPath = args[0]
		}
		if addr == "" {
			addr = cfg.Server.Addr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		log.Printf("stepseq %s listening on %s, projects in %s", version.VersionOrHash, l.Addr(), store.Dir())
		return server.New(opts, store).Serve(ctx, l)
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects in the project store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		infos, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s  %s\n", info.ID, info.Name, info.LastModified.Local().Format(time.DateTime))
		}
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete projects from the project store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

var projectsExportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write a stored project to a project file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		r, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		m := newModel()
		m.LoadProject(r.Project)
		return m.Save(args[1])
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the edit commands",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range script.Commands() {
			fmt.Fprintln(cmd.OutOrStdout(), script.Usage(name))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: stepseq.toml in the current or the user config directory)")
	editCmd.Flags().StringVarP(&scriptText, "exec", "e", "", "commands to run instead of reading them")
	editCmd.Flags().StringVarP(&outputPath, "output", "o", "", "save to this file instead of the input file")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "MIDI file to write")
	exportCmd.Flags().IntVarP(&patternID, "pattern", "p", 0, "export only this pattern")
	exportCmd.Flags().Float64Var(&bpm, "bpm", 0, "tempo in beats per minute (default: the tempo of the project)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from config)")
	serveCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the project file when it changes")
	projectsCmd.AddCommand(projectsDeleteCmd, projectsExportCmd)
	rootCmd.AddCommand(newCmd, showCmd, editCmd, exportCmd, serveCmd, projectsCmd, commandsCmd)
}

func newModel() *editor.Model {
	return editor.NewModel(nil, nil, cfg.History.MaxLength)
}

func openModel(path string) (*editor.Model, error) {
	m := newModel()
	if err := m.Open(path); err != nil {
		return nil, err
	}
	return m, nil
}

func printSnapshot(w io.Writer, s stepseq.Snapshot) {
	for _, p := range s.Channels.Patterns {
		current := ""
		if p.ID == s.Channels.CurrentPatternID {
			current = " *"
		}
		fmt.Fprintf(w, "pattern %d %q%s\n", p.ID, p.Name, current)
		for _, c := range p.Channels {
			var b strings.Builder
			for i, on := range c.Grid {
				if i > 0 && i%4 == 0 {
					b.WriteByte(' ')
				}
				if on {
					b.WriteByte('x')
				} else {
					b.WriteByte('.')
				}
			}
			fmt.Fprintf(w, "  %2d %-12s %s\n", c.ID, c.Name, b.String())
		}
	}
	fmt.Fprintf(w, "playlist %dx%d\n", s.Playlist.Width, s.Playlist.Height)
	for _, t := range s.Playlist.Tracks {
		cells := make([]string, len(t.Grid))
		for i, v := range t.Grid {
			cells[i] = "-"
			if v != stepseq.NoPattern {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintf(w, "  %-12s %s\n", t.Name, strings.Join(cells, " "))
	}
}
