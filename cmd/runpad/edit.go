package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/runpad/internal/editor"
	"github.com/michaelbrown/runpad/internal/lang"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Start an interactive editor in the terminal",
	Long: `Start an interactive editor session against a running relay.

Lines you type are appended to the code buffer. Slash commands control the
session; type /help for the list. A line holding only "." runs the code.

Examples:
  runpad edit
  runpad edit --backend http://localhost:5000 --transport ws`,
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

var (
	dim     = color.New(color.FgHiBlack)
	accent  = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	relayClient, closeRelay, err := openRelay(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRelay()

	sess := editor.NewSession(cat, relayClient)

	fmt.Printf("Runpad - Online Code Runner\n")
	fmt.Printf("Backend: %s | Language: %s\n", cfg.Client.BackendURL, sess.State().Language)
	fmt.Printf("Type /help for commands, /quit to exit\n\n")
	printCode(sess.State())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFor(sess.State()),
		HistoryFile:     filepath.Join(os.TempDir(), "runpad_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// SIGTERM closes the prompt; readline reports Ctrl+C itself as ErrInterrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			rl.Close()
		}
	}()

	ed := &terminalEditor{sess: sess, rl: rl}
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		if ed.inputMode {
			ed.collectInput(line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == ".":
			ed.run(cmd.Context())
		case strings.HasPrefix(trimmed, "/"):
			if quit := ed.handleCommand(cmd.Context(), trimmed); quit {
				fmt.Println("Goodbye!")
				return nil
			}
		default:
			ed.appendLine(line)
		}
		if !ed.inputMode {
			rl.SetPrompt(promptFor(sess.State()))
		}
	}
}

// terminalEditor maps terminal lines onto session operations.
type terminalEditor struct {
	sess *editor.Session
	rl   *readline.Instance

	// edited is false while the buffer still holds a sample; the first typed
	// line replaces the sample instead of appending to it.
	edited    bool
	inputMode bool
	inputBuf  []string
}

func promptFor(st editor.State) string {
	return accent.Sprintf("%s>", st.Language) + " "
}

func (e *terminalEditor) appendLine(line string) {
	st := e.sess.State()
	if !e.edited {
		e.sess.SetCode(line)
		e.edited = true
		return
	}
	if st.Code == "" {
		e.sess.SetCode(line)
		return
	}
	e.sess.SetCode(st.Code + "\n" + line)
}

func (e *terminalEditor) collectInput(line string) {
	if strings.TrimSpace(line) == "." {
		input := strings.Join(e.inputBuf, "\n")
		if len(e.inputBuf) > 0 {
			input += "\n"
		}
		e.sess.SetInput(input)
		e.inputMode = false
		e.inputBuf = nil
		e.rl.SetPrompt(promptFor(e.sess.State()))
		dim.Printf("stdin set (%d bytes)\n", len(input))
		return
	}
	e.inputBuf = append(e.inputBuf, line)
}

func (e *terminalEditor) run(ctx context.Context) {
	dim.Println("Running...")
	st, err := e.sess.Run(ctx)
	if errors.Is(err, editor.ErrBusy) {
		warn.Println("a run is already in progress")
		return
	}
	printResult(st)
}

// handleCommand processes slash commands. Returns true when the session
// should end.
func (e *terminalEditor) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /lang <tag>       Switch language and load its sample")
		fmt.Println("  /langs            List languages")
		fmt.Println("  /input            Enter stdin; finish with a line holding only \".\"")
		fmt.Println("  /run  (or \".\")    Run the code")
		fmt.Println("  /show             Show code, stdin and last output")
		fmt.Println("  /clear            Empty the code buffer")
		fmt.Println("  /load <file>      Replace the code with a file's contents")
		fmt.Println("  /reset            Restore the sample and clear stdin and output")
		fmt.Println("  /download [dir]   Save the code as code.<ext>")
		fmt.Println("  /quit             Exit")

	case "/lang":
		if len(args) != 1 {
			warn.Println("usage: /lang <tag>")
			return false
		}
		if err := e.sess.SelectLanguage(args[0]); err != nil {
			failure.Println(err)
			return false
		}
		e.edited = false
		printCode(e.sess.State())

	case "/langs":
		printLanguages(e.sess.Catalog(), e.sess.State().Language)

	case "/input":
		e.inputMode = true
		e.inputBuf = nil
		e.rl.SetPrompt(dim.Sprint("stdin> "))

	case "/run":
		e.run(ctx)

	case "/show":
		st := e.sess.State()
		printCode(st)
		if st.Input != "" {
			dim.Println("── stdin ──")
			fmt.Print(st.Input)
		}
		if st.Output != "" {
			printResult(st)
		}

	case "/clear":
		e.sess.SetCode("")
		e.edited = true

	case "/load":
		if len(args) != 1 {
			warn.Println("usage: /load <file>")
			return false
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			failure.Println(err)
			return false
		}
		e.sess.SetCode(string(data))
		e.edited = true
		printCode(e.sess.State())

	case "/reset":
		e.sess.Reset()
		e.edited = false
		printCode(e.sess.State())

	case "/download":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		path, err := editor.SaveDownload(e.sess.State(), e.sess.Catalog(), dir)
		if err != nil {
			failure.Println(err)
			return false
		}
		success.Printf("saved %s\n", path)

	default:
		warn.Printf("Unknown command: %s (type /help)\n", cmd)
	}
	return false
}

func printCode(st editor.State) {
	dim.Printf("── %s ──\n", st.Language)
	for i, line := range strings.Split(st.Code, "\n") {
		fmt.Printf("%s %s\n", dim.Sprintf("%3d│", i+1), line)
	}
}

func printResult(st editor.State) {
	header := "✨ Output"
	if label := st.RuntimeLabel(); label != "" {
		header += "  " + dim.Sprintf("🕒 %s", label)
	}
	fmt.Println(header)
	if st.Output == editor.ConnectionError {
		failure.Println(st.Output)
		return
	}
	success.Println(strings.TrimRight(st.Output, "\n"))
}

func printLanguages(cat lang.Catalog, current string) {
	for _, l := range cat {
		marker := " "
		if l.Value == current {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-16s .%s\n", marker, l.Value, l.Label, l.Ext)
	}
}
