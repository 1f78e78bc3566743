package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/runpad/internal/editor"
)

var (
	runLangFlag  string
	runStdinFlag string
	runInputFlag string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a source file through the relay and print its output",
	Long: `Submit a source file to the relay once and print the output and run time.

The language is taken from --lang or inferred from the file extension. Use
"-" to read the code from standard input.

Examples:
  runpad run hello.py
  runpad run main.c --stdin input.txt
  echo 'console.log(1)' | runpad run - --lang javascript`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runLangFlag, "lang", "l", "", "Language tag (default: inferred from file extension)")
	runCmd.Flags().StringVar(&runStdinFlag, "stdin", "", "File whose contents are passed as stdin")
	runCmd.Flags().StringVar(&runInputFlag, "input", "", "Literal text passed as stdin")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	code, err := readSource(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	tag := runLangFlag
	if tag == "" {
		l, ok := cat.ByExtension(args[0])
		if !ok {
			return fmt.Errorf("cannot infer language from %q; pass --lang", args[0])
		}
		tag = l.Value
	}

	input := runInputFlag
	if runStdinFlag != "" {
		data, err := os.ReadFile(runStdinFlag)
		if err != nil {
			return fmt.Errorf("reading stdin file: %w", err)
		}
		input = string(data)
	}

	relayClient, closeRelay, err := openRelay(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRelay()

	sess := editor.NewSession(cat, relayClient)
	if err := sess.SelectLanguage(tag); err != nil {
		return err
	}
	sess.SetCode(code)
	sess.SetInput(input)

	st, err := sess.Run(cmd.Context())
	printResult(st)
	if err != nil && !errors.Is(err, editor.ErrBusy) {
		return fmt.Errorf("relay %s: %w", cfg.Client.BackendURL, err)
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading code from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
