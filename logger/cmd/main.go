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

// ccreport-logger records a compiler invocation into the compilation
// database named by CC_LOGGER_FILE and then runs the compiler:
//
//	CC_LOGGER_FILE=$PWD/compile_commands.json make CC="ccreport-logger gcc"
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/golang/glog"
	"naive.systems/ccreport/compilecommand"
	"naive.systems/ccreport/logger"
)

const (
	// glog writes its files to this directory instead of the system temp dir.
	envLogDir = "CC_LOGGER_LOG_DIR"
	// glog verbosity, 1 logs every recorded action
	envVerbose = "CC_LOGGER_VERBOSE"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func setupLogging() {
	// The arguments belong to the compiler, only mark the flags as parsed.
	if err := flag.CommandLine.Parse(nil); err != nil {
		glog.Warningf("flag.Parse: %v", err)
	}
	// The output of a build must stay untouched.
	if err := flag.Set("stderrthreshold", "FATAL"); err != nil {
		glog.Warningf("failed to set stderrthreshold: %v", err)
	}
	if dir := os.Getenv(envLogDir); dir != "" {
		if err := flag.Set("log_dir", dir); err != nil {
			glog.Warningf("failed to set log_dir: %v", err)
		}
	}
	if v := os.Getenv(envVerbose); v != "" {
		if err := flag.Set("v", v); err != nil {
			glog.Warningf("failed to set v: %v", err)
		}
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	setupLogging()
	defer glog.Flush()

	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: ccreport-logger <compiler> [arguments...]")
		return 2
	}
	record(args, logger.ConfigFromEnv())
	return execute(args, stdin, stdout, stderr)
}

// record never fails: a command that cannot be logged is only reported in
// the log.
func record(args []string, cfg *logger.Config) {
	action, ok := logger.Parse(args, cfg)
	if !ok {
		glog.V(1).Infof("not a compile action: %v", args)
		return
	}
	glog.V(1).Infof("logging %s", action.CommandLine())
	if cfg.OutputFile == "" {
		glog.Warningf("%s is not set, nothing is recorded", logger.EnvFile)
		return
	}
	if err := compilecommand.AppendFile(cfg.OutputFile, action.Entries()); err != nil {
		glog.Errorf("compilecommand.AppendFile: %v", err)
	}
}

// execute runs the real tool and returns its exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	glog.Errorf("cmd.Run: %v", err)
	fmt.Fprintf(stderr, "ccreport-logger: %v\n", err)
	return 127
}
