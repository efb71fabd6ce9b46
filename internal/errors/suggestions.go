package errors

import (
	"fmt"
	"strings"

	"github.com/conneroisu/wikimark/internal/types"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	AvailablePages []string
	ConfigPath     string
	PagesDir       string
}

// PageNotFoundError generates suggestions for a missing page.
func PageNotFoundError(name string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the page file exists",
			Description: "Pages are read from the configured pages directory",
			Command:     "ls " + ctx.PagesDir,
			Example:     ctx.PagesDir + "/" + name + ".wiki",
		},
		{
			Title:       "List all pages",
			Description: "See which pages wikimark has discovered",
			Command:     "wikimark build --dry-run",
		},
	}

	lower := strings.ToLower(name)
	for _, page := range ctx.AvailablePages {
		candidate := strings.ToLower(page)
		if strings.Contains(candidate, lower) || strings.Contains(lower, candidate) {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Did you mean '" + page + "'?",
				Description: "Similar page found",
				Command:     "wikimark render " + ctx.PagesDir + "/" + page + ".wiki",
			})
			break
		}
	}
	return suggestions
}

// DiagnosticSuggestions generates fixes for the diagnostics of a page.
func DiagnosticSuggestions(diagnostics []types.Diagnostic) []ErrorSuggestion {
	var suggestions []ErrorSuggestion
	seen := make(map[string]bool)
	add := func(s ErrorSuggestion) {
		if !seen[s.Title] {
			seen[s.Title] = true
			suggestions = append(suggestions, s)
		}
	}

	for _, d := range diagnostics {
		msg := strings.ToLower(d.Message)
		switch {
		case strings.Contains(msg, "card"):
			add(ErrorSuggestion{
				Title:       "Fix the card grid payload",
				Description: "Card grids take a JSON array of objects, optionally prefixed with items=",
				Example:     `[[카드그리드: items=[{"title": "A", "link": "문서A"}]]]`,
			})
		case strings.Contains(msg, "footnote"):
			add(ErrorSuggestion{
				Title:       "Reference or remove the footnote",
				Description: "A footnote definition is never referenced in the text",
				Example:     "본문[*note]\n[*note] 각주 내용",
			})
		case strings.Contains(msg, "unterminated template"):
			add(ErrorSuggestion{
				Title:       "Close the template",
				Description: "A multi-line template ends with a line holding only }}",
				Example:     "{{정보상자\n이름 = 홍길동\n}}",
			})
		case strings.Contains(msg, "separator"):
			add(ErrorSuggestion{
				Title:       "Add a separator row",
				Description: "A markdown table needs a row of dashes under its header",
				Example:     "| 이름 | 값 |\n|---|---|\n| a | 1 |",
			})
		case strings.Contains(msg, "highlight"):
			add(ErrorSuggestion{
				Title:       "Check the code fence language",
				Description: "The fence language is not known to the highlighter",
				Example:     "```go",
			})
		}
	}
	return suggestions
}

// ServerStartError generates suggestions for server startup failures
func ServerStartError(err error, port int) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") || strings.Contains(errStr, "bind") {
		suggestions = append(suggestions,
			ErrorSuggestion{
				Title:       "Port already in use",
				Description: fmt.Sprintf("Port %d is already being used by another process", port),
				Command:     fmt.Sprintf("lsof -i :%d", port),
			},
			ErrorSuggestion{
				Title:       "Use a different port",
				Description: "Start the server on a different port",
				Command:     fmt.Sprintf("wikimark serve --port %d", port+1),
			},
		)
	}

	if strings.Contains(errStr, "permission denied") && port < 1024 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use unprivileged port",
			Description: "Ports below 1024 require root privileges",
			Command:     "wikimark serve --port 8080",
		})
	}

	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .wikimark.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "unmarshal") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "dir") || strings.Contains(configError, "path") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check directory paths",
			Description: "Paths must be relative and stay inside the project",
			Example:     "pages:\n  dir: ./pages",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}
