package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/runpad/internal/config"
	"github.com/michaelbrown/runpad/internal/editor"
	"github.com/michaelbrown/runpad/internal/lang"
	"github.com/michaelbrown/runpad/internal/relay"
)

const maxOutput = 4000

type codeRunner struct {
	cat   lang.Catalog
	relay editor.Relay
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	cat, err := lang.Load(cfg.Client.LanguagesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading languages: %v\n", err)
		os.Exit(1)
	}

	cr := &codeRunner{cat: cat, relay: editor.NewHTTPRelay(cfg.Client.BackendURL)}

	s := server.NewMCPServer("runpad-code-runner", "0.1.0")
	s.AddTool(codeRunTool(cat), cr.handleCodeRun)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}

func codeRunTool(cat lang.Catalog) mcp.Tool {
	tags := strings.Join(cat.Tags(), ", ")
	return mcp.Tool{
		Name:        "code_run",
		Description: fmt.Sprintf("Execute code through the Runpad relay. Supported languages: %s.", tags),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Programming language (%s)", tags),
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Standard input to provide to the program (optional)",
				},
			},
			Required: []string{"language", "code"},
		},
	}
}

func (c *codeRunner) handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	language, _ := args["language"].(string)
	code, _ := args["code"].(string)
	stdin, _ := args["stdin"].(string)

	if language == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}

	sess := editor.NewSession(c.cat, c.relay)
	if err := sess.SelectLanguage(language); err != nil {
		return errResult(fmt.Sprintf("error: unsupported language %q", language)), nil
	}
	sess.SetCode(code)
	sess.SetInput(stdin)

	st, err := sess.Run(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	text := truncate(st.Output, maxOutput)
	if label := st.RuntimeLabel(); label != "" {
		text += "\n\nruntime: " + label
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: st.Output == relay.FailureMessage,
	}, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n... (output truncated)"
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
