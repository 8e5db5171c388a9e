package utils

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var commandFuncs = template.FuncMap{
	"quote": ShellQuote,
}

/**
 * Render a command line from a template
 * @param {string} command - Command template, e.g. "{{.Path}} -nr {{.Nr}} -function StartService"
 * @param {[]string} args - Argument templates appended to the command, empty results are dropped
 * @param {interface{}} data - Template data
 * @returns {string} Rendered command line in shell word syntax
 * @returns {error} Error if a template cannot be parsed or executed
 * @description
 * - Templates may use the "quote" function for values that can contain blanks or quotes
 */
func GetCommandLine(command string, args []string, data interface{}) (string, error) {
	cmdTemplate, err := template.New("command").Funcs(commandFuncs).Option("missingkey=error").Parse(command)
	if err != nil {
		return "", fmt.Errorf("failed to parse command template: %w", err)
	}

	var cmdBuf bytes.Buffer
	if err := cmdTemplate.Execute(&cmdBuf, data); err != nil {
		return "", fmt.Errorf("failed to execute command template: %w", err)
	}

	parts := []string{strings.TrimSpace(cmdBuf.String())}
	for _, arg := range args {
		argTemplate, err := template.New("arg").Funcs(commandFuncs).Option("missingkey=error").Parse(arg)
		if err != nil {
			return "", fmt.Errorf("failed to parse arg template '%s': %w", arg, err)
		}

		var argBuf bytes.Buffer
		if err := argTemplate.Execute(&argBuf, data); err != nil {
			return "", fmt.Errorf("failed to execute arg template '%s': %w", arg, err)
		}
		if s := strings.TrimSpace(argBuf.String()); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, " "), nil
}

// ShellQuote quotes s for POSIX shells and shellwords.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
