// Command gait-analyse scores a single clip, either in-process or by
// submitting it to a running gaitd.
//
// Usage:
//
//	gait-analyse [flags] clip.mp4
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
	"github.com/banshee-data/gait.report/internal/gait/signalplot"
	"github.com/banshee-data/gait.report/internal/jobs"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

type options struct {
	configPath string
	poseCmd    string
	plotDir    string
	remote     string
	withersCM  float64
	breed      string
	pretty     bool
	logLevel   string
	poll       time.Duration
	video      string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("gait-analyse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON")
	fs.StringVar(&o.poseCmd, "pose-cmd", "", "Pose keypoint model command (overrides the config)")
	fs.StringVar(&o.plotDir, "plot", "", "Write a PNG of the quadrant signals into this directory")
	fs.StringVar(&o.remote, "remote", "", "Submit to a gaitd at this base URL instead of analysing locally")
	fs.Float64Var(&o.withersCM, "withers-cm", jobs.DefaultWithersCM, "Withers height in cm (remote only)")
	fs.StringVar(&o.breed, "breed", "", "Breed (remote only)")
	fs.BoolVar(&o.pretty, "pretty", false, "Indent the JSON output")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.DurationVar(&o.poll, "poll", time.Second, "Result poll interval (remote only)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gait-analyse [flags] clip.mp4\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one video path is required")
	}
	if o.withersCM <= 0 {
		return nil, fmt.Errorf("invalid -withers-cm %g", o.withersCM)
	}
	if o.poll <= 0 {
		return nil, fmt.Errorf("invalid -poll %s", o.poll)
	}
	o.video = fs.Arg(0)
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	monitoring.UseSlog(monitoring.NewConsoleLogger(os.Stderr, level, true))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := analyse(ctx, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gait-analyse: %v\n", err)
		os.Exit(1)
	}
	if err := report(os.Stdout, o, res); err != nil {
		fmt.Fprintf(os.Stderr, "gait-analyse: %v\n", err)
		os.Exit(1)
	}
}

func analyse(ctx context.Context, o *options) (*gait.AnalysisResult, error) {
	if o.remote != "" {
		return analyseRemote(ctx, api.NewClient(o.remote, nil), o)
	}
	tuning, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	analyzer, err := pipeline.NewFromTuning(tuning, pipeline.OpenCVBackend(), o.poseCmd)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(ctx, o.video)
}

func analyseRemote(ctx context.Context, c *api.Client, o *options) (*gait.AnalysisResult, error) {
	id, err := c.Submit(ctx, o.video, jobs.Params{WithersCM: o.withersCM, Breed: o.breed})
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[gait-analyse] submitted %s as job %s", o.video, id)
	res, err := c.Wait(ctx, id, o.poll)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// report writes the result JSON to w and, with -plot, the signals PNG.
func report(w io.Writer, o *options, res *gait.AnalysisResult) error {
	if res == nil {
		return errors.New("empty result")
	}
	enc := json.NewEncoder(w)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return err
	}
	if o.plotDir == "" {
		return nil
	}
	if res.Metrics.Signals.Len() == 0 {
		monitoring.Logf("[gait-analyse] no signals in result, skipping plot")
		return nil
	}
	fps := 0.0
	if res.Metrics.FPS != nil && res.Metrics.FPS.IsFinite() {
		fps = res.Metrics.FPS.Float()
	}
	name := strings.TrimSuffix(filepath.Base(o.video), filepath.Ext(o.video))
	path, err := signalplot.Save(o.plotDir, name, res.Metrics.Signals, fps)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	monitoring.Logf("[gait-analyse] wrote %s", path)
	return nil
}
