package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/simhost/internal/analysis"
	"github.com/san-kum/simhost/internal/config"
	"github.com/san-kum/simhost/internal/debugdraw"
	"github.com/san-kum/simhost/internal/physics"
	"github.com/san-kum/simhost/internal/session"
	"github.com/san-kum/simhost/internal/storage"
	"github.com/san-kum/simhost/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const maxPlots = 6

// sessionConfig applies the preset argument and flag overrides to the
// loaded configuration.
func sessionConfig(args []string) (*config.Config, error) {
	c := *cfg
	if len(args) == 1 {
		preset := config.GetPreset(args[0])
		if preset == nil {
			return nil, fmt.Errorf("unknown preset %q (have %v)", args[0], config.ListPresets())
		}
		c.Scene = *preset
	}
	if duration > 0 {
		c.Session.Duration = duration
	}
	if fps > 0 {
		c.Session.FPS = fps
	}
	if timeScale > 0 {
		c.Physics.TimeScale = timeScale
	}
	if script != "" {
		c.Session.Script = script
	}
	if debugDraw {
		c.Debug.Enabled = true
	}
	return &c, c.Validate()
}

// startDebug wires a recorder into the simulation and serves it until ctx
// is done.
func startDebug(ctx context.Context, c *config.Config) (*debugdraw.Recorder, physics.Option) {
	rec := debugdraw.NewRecorder()
	srv := debugdraw.NewServer(rec, c.Debug.Rate, log)
	go func() {
		if err := srv.ListenAndServe(ctx, c.Debug.Addr); err != nil {
			log.WithError(err).Error("debug draw server stopped")
		}
	}()
	return rec, physics.WithDebugRenderer(rec)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	c, err := sessionConfig(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	var opts []session.Option
	if c.Debug.Enabled {
		_, opt := startDebug(ctx, c)
		opts = append(opts, session.WithPhysicsOptions(opt))
	}

	sess := session.New(c, log, opts...)
	if err := sess.Setup(); err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.Run(ctx)
	if res == nil {
		return err
	}
	if err != nil {
		log.WithError(err).Warn("session interrupted")
	}
	printResult(c, res)
	return save(sess, res)
}

func runLive(cmd *cobra.Command, args []string) error {
	c, err := sessionConfig(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	// the console owns the terminal
	log.SetOutput(logFile())

	feed := viz.NewFeed()
	opts := []session.Option{session.WithFrameObserver(feed.Observe)}
	var geometry func() *debugdraw.Frame
	if c.Debug.Enabled {
		rec, opt := startDebug(ctx, c)
		opts = append(opts, session.WithPhysicsOptions(opt))
		geometry = rec.Latest
	}

	sess := session.New(c, log, opts...)
	if err := sess.Setup(); err != nil {
		return err
	}
	defer sess.Close()

	res, err := viz.Run(ctx, c.Scene.Name, sess, feed, geometry)
	if err != nil {
		return err
	}
	printResult(c, res)
	return save(sess, res)
}

func runDebugServer(cmd *cobra.Command, args []string) error {
	debugDraw = true
	if duration == 0 {
		// serve until interrupted
		duration = 24 * 60 * 60
	}
	noSave = true
	return runHeadless(cmd, args)
}

func logFile() *os.File {
	if err := os.MkdirAll(dataDir, 0755); err == nil {
		if f, err := os.OpenFile(filepath.Join(dataDir, "simhost.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			return f
		}
	}
	return os.Stderr
}

func save(sess *session.Session, res *session.Result) error {
	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(sess.RunMetadata(res), res.Trace)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", runID)
	return nil
}

func printResult(c *config.Config, res *session.Result) {
	fmt.Printf("scene: %s\n", c.Scene.Name)
	fmt.Printf("frames: %d\n", res.Frames)
	fmt.Printf("steps: %d (%d failed)\n", res.Stats.Steps, res.Stats.StepErrors)
	fmt.Printf("simulated: %.3fs\n", res.Stats.SimulatedTime)

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %.4f\n", name, res.Metrics[name])
	}
	log.WithFields(logrus.Fields{
		"script_errors": res.ScriptErrors,
		"sync_errors":   res.SyncErrors,
	}).Debug("session summary")
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tFPS\tSTEPS\tSCALE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%d\t%d\t%.1f\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.FPS,
			run.Stats.Steps,
			run.TimeScale,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trace, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if trace.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", trace.Len())

	columns := trace.Columns
	if plotColumn != "" {
		columns = []string{plotColumn}
	} else if len(columns) > maxPlots {
		columns = columns[:maxPlots]
	}

	for _, name := range columns {
		data := trace.Column(name)
		if data == nil {
			return fmt.Errorf("run %s has no column %q", runID, name)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(name+" vs frame"))
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	trace, err := storage.New(dataDir).LoadFrames(runID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tMIN\tMAX\tFINAL\tSETTLED\tFREQ")
	for _, name := range trace.Columns {
		s := analysis.Summarize(name, trace.Times, trace.Column(name), tolerance)
		settled := "-"
		if s.Settled {
			settled = fmt.Sprintf("%.2fs", s.SettleTime)
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%s\t%.2fHz\n", s.Column, s.Min, s.Max, s.Final, settled, s.Dominant)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tGROUND\tBODIES\tCHARACTERS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%dx%d\t%d\t%d\n", name, p.Ground.Size, p.Ground.Size, len(p.Bodies), len(p.Characters))
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return config.Encode(os.Stdout, cfg)
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
