/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// ccreport tracks the diagnostics of a C/C++ code base across analyses.
//
//	ccreport parse -o compile_commands.json -- gcc -c main.c
//	ccreport hash -in diagnostics.json -format gcc -out reports.json
//	ccreport diff -base old.json -new reports.json -mode new
//	ccreport store -run nightly -in reports.json
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
	"strings"

	"github.com/golang/glog"
	"golang.org/x/text/message"
	"naive.systems/ccreport/archive"
	"naive.systems/ccreport/atomic"
	"naive.systems/ccreport/checkers"
	"naive.systems/ccreport/compilecommand"
	"naive.systems/ccreport/config"
	"naive.systems/ccreport/detection"
	"naive.systems/ccreport/diff"
	"naive.systems/ccreport/filter"
	"naive.systems/ccreport/i18n"
	"naive.systems/ccreport/logger"
	"naive.systems/ccreport/report"
	"naive.systems/ccreport/stats"
	"naive.systems/ccreport/store"
)

var debug = flag.Bool("debug", false, "print the log to stderr")

const usage = `usage: ccreport [flags] <command> [arguments]

commands:
  parse   log a compiler command line into a compilation database
  hash    read reports, filter them and compute their identity hashes
  diff    compare two report sets
  store   detect statuses against the last snapshot of a run and save a new one
`

type command struct {
	cfg     *config.Config
	printer *message.Printer
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	cfg := config.Load()
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if !*debug {
		if err := flag.Set("stderrthreshold", "FATAL"); err != nil {
			glog.Fatalf("failed to set default stderrthreshold: %v", err)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, flag.Args(), os.Stdout, os.Stderr)
	stop()
	glog.Flush()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	c := &command{cfg: cfg, stdout: stdout, stderr: stderr}
	var subcommand func(context.Context, []string) error
	switch args[0] {
	case "parse":
		subcommand = c.parse
	case "hash":
		subcommand = c.hash
	case "diff":
		subcommand = c.diff
	case "store":
		subcommand = c.store
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
	if err := subcommand(ctx, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		glog.Errorf("%s: %v", args[0], err)
		fmt.Fprintf(stderr, "ccreport %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func (c *command) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	c.cfg.RegisterFlags(fs)
	return fs
}

// printf writes a localized, time stamped line to stderr. Stdout carries
// the data only.
func (c *command) printf(format string, arg ...any) {
	if c.printer == nil {
		c.printer = i18n.GetPrinter(c.cfg.Lang)
	}
	i18n.FprintfWithTimeStamp(c.stderr, c.printer, format, arg...)
}

func writeJSON(w io.Writer, path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %v", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(w, string(content))
		return err
	}
	return atomic.Write(path, content)
}

func (c *command) parse(ctx context.Context, args []string) error {
	fs := c.flagSet("parse")
	output := fs.String("o", "", "compilation database the entries are appended to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	argv := fs.Args()
	if len(argv) == 0 {
		return errors.New("no compiler command line given")
	}
	action, ok := logger.Parse(argv, logger.ConfigFromEnv())
	if !ok {
		return fmt.Errorf("not a compile action: %s", strings.Join(argv, " "))
	}
	glog.Infof("%s action: %s", action.Language, action.CommandLine())
	entries := action.Entries()
	if *output != "" {
		if err := compilecommand.AppendFile(*output, entries); err != nil {
			return fmt.Errorf("compilecommand.AppendFile: %v", err)
		}
		c.printf(i18n.MsgActionsRecorded, len(entries), *output)
		return nil
	}
	return writeJSON(c.stdout, "", entries)
}

func readReports(path, format string) ([]report.Report, error) {
	switch format {
	case "", "native":
		return report.ReadFile(path)
	case "gcc":
		return report.ReadGccDiagnostics(path)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

func (c *command) loadRegistry() (*checkers.Registry, error) {
	if c.cfg.CheckersFile == "" {
		return nil, nil
	}
	registry, err := checkers.Load(c.cfg.CheckersFile)
	if err != nil {
		return nil, fmt.Errorf("checkers.Load: %v", err)
	}
	return registry, nil
}

// ensureHashed hashes the reports that carry no hash yet.
func (c *command) ensureHashed(reports []report.Report) error {
	var hasher *report.Hasher
	for i := range reports {
		if reports[i].Hash != "" {
			continue
		}
		if hasher == nil {
			var err error
			if hasher, err = report.NewHasherWithCharset(c.cfg.Charset); err != nil {
				return fmt.Errorf("report.NewHasher: %v", err)
			}
		}
		reports[i].Hash, reports[i].HashType = hasher.Hash(&reports[i])
	}
	return nil
}

func (c *command) hash(ctx context.Context, args []string) error {
	fs := c.flagSet("hash")
	in := fs.String("in", "", "reports to read")
	format := fs.String("format", "native", "format of -in: native or gcc")
	out := fs.String("out", "", "file the hashed reports are written to, stdout when empty")
	ignore := fs.String("ignore", "", "comma separated doublestar patterns of files whose reports are dropped")
	suffixes := fs.String("ignore_suffixes", "", "comma separated file extensions, such as .h, whose reports are dropped")
	jobs := fs.Int("jobs", 0, "number of files hashed in parallel, one per CPU when 0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	reports, err := readReports(*in, *format)
	if err != nil {
		return err
	}
	registry, err := c.loadRegistry()
	if err != nil {
		return err
	}
	if registry != nil {
		registry.ApplySeverity(reports)
	}
	reports = filter.IgnoreReports(reports, splitComma(*ignore))
	reports = filter.DeleteReportsWithSuffixes(reports, splitComma(*suffixes))
	if registry != nil {
		reports = filter.DeleteExceedReports(reports, registry.Limits())
	}
	hasher, err := report.NewHasherWithCharset(c.cfg.Charset)
	if err != nil {
		return fmt.Errorf("report.NewHasher: %v", err)
	}
	if err := hasher.HashAllParallel(ctx, reports, *jobs); err != nil {
		return fmt.Errorf("HashAllParallel: %v", err)
	}
	reports = report.Unique(reports)
	report.AddID(reports)
	report.Sort(reports)
	if err := writeJSON(c.stdout, *out, reports); err != nil {
		return err
	}
	if *out != "" {
		c.printf(i18n.MsgReportsWritten, len(reports), *out)
	}
	return nil
}

func splitComma(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// remapLines moves the line based reports of base to where their lines are
// after patch, and rehashes them. Reports on deleted lines keep their hash
// and end up resolved.
func remapLines(base []report.Report, patch *diff.Patch) {
	for i := range base {
		r := &base[i]
		if r.HashType != report.HashLine {
			continue
		}
		line, ok := patch.MapLine(r.File, r.Line)
		if !ok {
			continue
		}
		r.Line = line
		for j := range r.BugPath {
			e := &r.BugPath[j]
			if l, ok := patch.MapLine(e.File, e.Line); ok {
				e.Line = l
			}
		}
		r.Hash = report.LineHash(r)
	}
}

func (c *command) diff(ctx context.Context, args []string) error {
	fs := c.flagSet("diff")
	basePath := fs.String("base", "", "baseline reports")
	newPath := fs.String("new", "", "new reports")
	mode := fs.String("mode", "new", "reports to print: new, resolved or unresolved")
	patchPath := fs.String("patch", "", "unified diff between the baseline and the new sources, without context lines")
	gitDir := fs.String("git_dir", "", "git work tree the sources are diffed in when -git_base is set")
	gitBase := fs.String("git_base", "", "commit the baseline was analyzed at")
	out := fs.String("out", "", "file the selected reports are written to, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	compareMode, err := detection.ParseCompareMode(*mode)
	if err != nil {
		return err
	}
	base, err := readOptional(*basePath)
	if err != nil {
		return err
	}
	newReports, err := readOptional(*newPath)
	if err != nil {
		return err
	}
	if err := c.ensureHashed(base); err != nil {
		return err
	}
	if err := c.ensureHashed(newReports); err != nil {
		return err
	}
	patch, err := loadPatch(ctx, *patchPath, *gitDir, *gitBase)
	if err != nil {
		return err
	}
	if patch != nil {
		remapLines(base, patch)
	}
	c.printf(i18n.MsgComparing, len(base), len(newReports))
	result := detection.Classify(base, newReports)
	c.printf(i18n.MsgCompareResult, len(result.New), len(result.Resolved), len(result.Unresolved))
	return writeJSON(c.stdout, *out, result.Filter(compareMode))
}

// loadPatch reads the patch file, or asks git for the changes since
// gitBase. It returns nil when neither is given.
func loadPatch(ctx context.Context, patchPath, gitDir, gitBase string) (*diff.Patch, error) {
	if patchPath != "" {
		content, err := os.ReadFile(patchPath)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %v", err)
		}
		patch, err := diff.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("diff.Parse: %v", err)
		}
		return patch, nil
	}
	if gitBase == "" {
		return nil, nil
	}
	if gitDir == "" {
		gitDir = "."
	}
	return diff.GitDiff(ctx, gitDir, gitBase, "")
}

// readOptional treats a missing path as an empty report set.
func readOptional(path string) ([]report.Report, error) {
	if path == "" {
		return []report.Report{}, nil
	}
	return report.ReadFile(path)
}

// present returns the reports of a snapshot still found by its analysis.
func present(s *store.Snapshot) []report.Report {
	var reports []report.Report
	for _, d := range s.Reports {
		if d.Status != detection.StatusResolved {
			reports = append(reports, d.Report)
		}
	}
	return reports
}

func (c *command) store(ctx context.Context, args []string) error {
	fs := c.flagSet("store")
	run := fs.String("run", "", "name of the analyzed run, such as a branch")
	tag := fs.String("tag", "", "label of the snapshot, the HEAD commit of -git_dir when empty")
	gitDir := fs.String("git_dir", "", "git work tree of the analyzed sources")
	in := fs.String("in", "", "hashed reports of this analysis")
	compileCommands := fs.String("compile_commands", "", "compilation database of this analysis, archived and used to count lines")
	statsDir := fs.String("stats_dir", "", "directory summary.json is written to")
	ignore := fs.String("ignore", "", "comma separated doublestar patterns of sources not counted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *run == "" {
		return errors.New("-run is required")
	}
	newReports, err := readOptional(*in)
	if err != nil {
		return err
	}
	if err := c.ensureHashed(newReports); err != nil {
		return err
	}
	if *tag == "" && *gitDir != "" {
		if *tag, err = diff.HeadCommitHash(ctx, *gitDir); err != nil {
			glog.Warningf("diff.HeadCommitHash: %v", err)
		}
	}

	st, err := store.Open(c.cfg.StoreDSN, c.cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("store.Open: %v", err)
	}
	defer st.Close()

	var base []report.Report
	latest, err := st.LatestSnapshot(ctx, *run)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		c.printf(i18n.MsgNoSnapshot, *run)
	case err != nil:
		return fmt.Errorf("LatestSnapshot: %v", err)
	default:
		base = present(latest)
	}
	history, err := st.History(ctx, *run)
	if err != nil {
		return fmt.Errorf("History: %v", err)
	}
	registry, err := c.loadRegistry()
	if err != nil {
		return err
	}
	var reg detection.Registry
	if registry != nil {
		reg = registry
	}
	detected := detection.Detect(base, newReports, history, reg)

	snapshot := &store.Snapshot{Run: *run, Tag: *tag, Reports: detected}
	if err := st.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("SaveSnapshot: %v", err)
	}
	c.printf(i18n.MsgSnapshotSaved, snapshot.ID, *run)

	if c.cfg.ArchiveEnabled() {
		if err := c.archive(ctx, snapshot, *compileCommands); err != nil {
			return err
		}
	}

	summary := stats.Summarize(detected)
	if *compileCommands != "" {
		commands, err := compilecommand.ReadFile(*compileCommands)
		if err != nil {
			return fmt.Errorf("compilecommand.ReadFile: %v", err)
		}
		summary.LOC, err = stats.CountLines(commands, stats.DefaultCountLangs, splitComma(*ignore))
		if err != nil {
			glog.Errorf("stats.CountLines: %v", err)
		}
		c.printf(i18n.MsgLinesOfCode, summary.LOC)
	}
	sev, status := summary.Severity, summary.Status
	c.printf(i18n.MsgSeverityCount, sev.Critical, sev.High, sev.Medium, sev.Low, sev.Style, sev.Unspecified)
	c.printf(i18n.MsgStatusCount, status.New, status.Unresolved, status.Reopened, status.Resolved, status.Off, status.Unavailable)
	if *statsDir != "" {
		if err := stats.WriteSummary(*statsDir, summary); err != nil {
			return fmt.Errorf("stats.WriteSummary: %v", err)
		}
	}
	return writeJSON(c.stdout, "", snapshot)
}

func (c *command) archive(ctx context.Context, snapshot *store.Snapshot, compileCommands string) error {
	s3, err := archive.NewS3Store(c.cfg.Archive)
	if err != nil {
		return fmt.Errorf("archive.NewS3Store: %v", err)
	}
	key, err := s3.PutSnapshot(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("PutSnapshot: %v", err)
	}
	c.printf(i18n.MsgArchived, key)
	if compileCommands == "" {
		return nil
	}
	key, err = s3.PutCompileCommands(ctx, snapshot, compileCommands)
	if err != nil {
		return fmt.Errorf("PutCompileCommands: %v", err)
	}
	c.printf(i18n.MsgArchived, key)
	return nil
}
