package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apiwarden/apiwarden/contract"
	"github.com/apiwarden/apiwarden/enforcer"
)

var checkFlags struct {
	contract    string
	strict      bool
	method      string
	path        string
	status      int
	contentType string
	headers     []string
	query       []string
	bodyFile    string
	jsonOutput  bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate one recorded request or response against a contract",
	Long: `Validate a single recorded HTTP message against a contract without
running the proxy. Without --status the message is validated as a
request; with --status it is validated as a response.

The body is read from --body-file, or from stdin when --body-file is
"-".

Exit status:
  0    The message conforms to the contract
  1    Findings were reported (or the contract failed to load)

Examples:
  apiwarden check --contract api.yaml --method GET --path /users/42
  apiwarden check --contract api.yaml --method POST --path /users \
      --header 'Content-Type: application/json' --body-file req.json
  apiwarden check --contract api.yaml --method GET --path /users/42 \
      --status 200 --body-file resp.json --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCheck(cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.contract, "contract", "", "contract file (required)")
	checkCmd.Flags().BoolVar(&checkFlags.strict, "strict", false, "also flag undeclared traffic elements")
	checkCmd.Flags().StringVar(&checkFlags.method, "method", "GET", "HTTP method")
	checkCmd.Flags().StringVar(&checkFlags.path, "path", "", "concrete request path (required)")
	checkCmd.Flags().IntVar(&checkFlags.status, "status", 0, "response status code; validates as a response when set")
	checkCmd.Flags().StringVar(&checkFlags.contentType, "content-type", "", "Content-Type of the body")
	checkCmd.Flags().StringArrayVar(&checkFlags.headers, "header", nil, "header as 'Name: value' (repeatable)")
	checkCmd.Flags().StringArrayVar(&checkFlags.query, "query", nil, "query parameter as 'name=value' (repeatable)")
	checkCmd.Flags().StringVar(&checkFlags.bodyFile, "body-file", "", "body file, or - for stdin")
	checkCmd.Flags().BoolVar(&checkFlags.jsonOutput, "json", false, "print the outcome as JSON")
	_ = checkCmd.MarkFlagRequired("contract")
	_ = checkCmd.MarkFlagRequired("path")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(out io.Writer) error {
	doc, err := contract.LoadFile(checkFlags.contract)
	if err != nil {
		return err
	}
	engine, err := enforcer.New(doc, checkFlags.strict)
	if err != nil {
		return err
	}

	body, err := readBody(checkFlags.bodyFile)
	if err != nil {
		return err
	}

	header, err := parseHeaders(checkFlags.headers)
	if err != nil {
		return err
	}
	contentType := checkFlags.contentType
	if contentType == "" {
		contentType = header.Get("Content-Type")
	}

	var outcome *enforcer.Outcome
	if checkFlags.status > 0 {
		outcome = engine.ValidateResponse(enforcer.ResponseSnapshot{
			Method:      strings.ToUpper(checkFlags.method),
			Path:        checkFlags.path,
			StatusCode:  checkFlags.status,
			ContentType: contentType,
			Body:        body,
			Header:      header,
		})
	} else {
		query, err := parseQuery(checkFlags.query)
		if err != nil {
			return err
		}
		outcome = engine.ValidateRequest(enforcer.RequestSnapshot{
			Method:      strings.ToUpper(checkFlags.method),
			Path:        checkFlags.path,
			ContentType: contentType,
			Body:        body,
			Header:      header,
			Query:       query,
		})
	}

	if err := printOutcome(out, outcome); err != nil {
		return err
	}
	if outcome != nil {
		os.Exit(1)
	}
	return nil
}

func printOutcome(out io.Writer, outcome *enforcer.Outcome) error {
	if checkFlags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if outcome == nil {
			return enc.Encode(map[string]any{"valid": true})
		}
		return enc.Encode(map[string]any{"valid": false, "outcome": outcome})
	}

	if outcome == nil {
		fmt.Fprintln(out, "✓ Conforms to the contract")
		return nil
	}
	fmt.Fprintf(out, "✗ %s (%d finding(s)):\n", outcome.Message, len(outcome.Findings))
	for _, f := range outcome.Findings {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	return nil
}

func readBody(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

func parseHeaders(pairs []string) (http.Header, error) {
	header := http.Header{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", pair)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return header, nil
}

func parseQuery(pairs []string) (map[string][]string, error) {
	query := map[string][]string{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid query parameter %q, expected 'name=value'", pair)
		}
		query[name] = append(query[name], value)
	}
	return query, nil
}
