package executor

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/utils"
)

// maxSteps bounds how many step delays one run waits for
const maxSteps = 5

// Script is the part of a playbook the executor needs
type Script struct {
	Name    string
	Type    string
	Content string
}

// Result represents the outcome of a simulated run
type Result struct {
	Stdout        string
	Stderr        string
	ExitCode      int
	ExecutionTime time.Duration
}

// Failed reports whether the run exited non-zero
func (r *Result) Failed() bool {
	return r.ExitCode != 0
}

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}|\$\{(\w+)\}`)
	exitFailurePattern = regexp.MustCompile(`(?m)^\s*exit\s+1\b`)
)

// Executor simulates playbook runs. Scripts are never executed on the host:
// every command line is echoed with its parameters substituted.
type Executor struct {
	stepDelay time.Duration
}

// NewExecutor creates an executor that waits stepDelay between simulated steps
func NewExecutor(stepDelay time.Duration) *Executor {
	return &Executor{stepDelay: stepDelay}
}

// Execute simulates script with params. onProgress is called with the last lines
// of stdout after every step. A cancelled ctx stops the run with exit code 130.
//
// The run fails when the script contains "exit 1" or params carry fail: true.
func (e *Executor) Execute(ctx context.Context, script Script, params map[string]interface{}, onProgress func(string)) *Result {
	start := time.Now()
	var stdout strings.Builder
	fmt.Fprintf(&stdout, "Running %s (%s)\n", script.Name, script.Type)
	for _, line := range paramLines(params) {
		stdout.WriteString(line + "\n")
	}
	for _, warning := range utils.ScanScript(script.Content) {
		fmt.Fprintf(&stdout, "warning: %s\n", warning)
	}

	steps := commandLines(script.Content)
	for i, line := range steps {
		if i < maxSteps && e.stepDelay > 0 {
			select {
			case <-ctx.Done():
				return &Result{
					Stdout:        stdout.String(),
					Stderr:        "execution cancelled: " + ctx.Err().Error(),
					ExitCode:      130,
					ExecutionTime: time.Since(start),
				}
			case <-time.After(e.stepDelay):
			}
		}
		fmt.Fprintf(&stdout, "$ %s\n", utils.StripControlChars(substitute(line, params)))
		if onProgress != nil {
			onProgress(utils.GetLastNLines(stdout.String(), 15))
		}
	}

	result := &Result{Stdout: stdout.String()}
	if reason := failureReason(script.Content, params); reason != "" {
		result.ExitCode = 1
		result.Stderr = reason
		result.Stdout += "Process exited with code 1\n"
	} else {
		result.Stdout += "Process exited with code 0\n"
	}
	result.ExecutionTime = time.Since(start)

	logrus.Debugf("Simulated %s in %s (exit %d): %s", script.Name, utils.FormatDuration(result.ExecutionTime),
		result.ExitCode, utils.EscapeForLogging(result.Stderr, 200))
	return result
}

func failureReason(content string, params map[string]interface{}) string {
	if v, ok := params["fail"].(bool); ok && v {
		return "forced failure requested by parameter fail=true"
	}
	if exitFailurePattern.MatchString(content) {
		return "script exited with status 1"
	}
	return ""
}

// commandLines returns the non-empty, non-comment lines of content
func commandLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "---") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func substitute(line string, params map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(line, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

func paramLines(params map[string]interface{}) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("param %s=%v", k, params[k]))
	}
	return lines
}
