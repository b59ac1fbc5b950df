package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Commands a playbook should never contain
	dangerousCommands = []string{
		"rm -rf /",
		"mkfs",
		"dd if=",
		":(){:|:&};:",
		"chmod -R 777 /",
		"> /dev/sda",
		"shutdown",
		"reboot",
		"init 0",
		"init 6",
	}

	sensitivePathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/etc/shadow`),
		regexp.MustCompile(`/etc/sudoers`),
		regexp.MustCompile(`~/.ssh/`),
		regexp.MustCompile(`\.\.(/|\\)`),
	}

	// Control characters except tab, newline and carriage return
	controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// ScanScript reports the dangerous commands and sensitive paths found in a
// playbook body. An empty result means nothing was flagged.
func ScanScript(content string) []string {
	var warnings []string
	lower := strings.ToLower(content)
	for _, cmd := range dangerousCommands {
		if strings.Contains(lower, strings.ToLower(cmd)) {
			warnings = append(warnings, fmt.Sprintf("dangerous command %q", cmd))
		}
	}
	for _, pattern := range sensitivePathPatterns {
		if loc := pattern.FindString(content); loc != "" {
			warnings = append(warnings, fmt.Sprintf("sensitive path %q", loc))
		}
	}
	return warnings
}

// StripControlChars removes control characters that would corrupt terminal
// or JSON output, keeping tabs and line breaks
func StripControlChars(text string) string {
	return controlCharPattern.ReplaceAllString(text, "")
}

// EscapeForLogging truncates text to maxLen bytes and escapes line breaks
// so it fits on one log line
func EscapeForLogging(text string, maxLen int) string {
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(text)
}
