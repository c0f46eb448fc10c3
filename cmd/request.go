package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/trackerctl/pkg/output"
)

func newRequestCmd(a *app) *cobra.Command {
	var (
		data     string
		dataFile string
		headers  []string
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send a raw API request",
		Long: `Send a request to any API path with the stored session. The token is
refreshed and the request replayed once if the server answers 401.

Examples:
  trackerctl request GET /projects/
  trackerctl request PATCH /issues/4/ --data '{"status": "closed"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])

			var body interface{}
			if dataFile != "" {
				raw, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", dataFile, err)
				}
				data = string(raw)
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("request body is not valid JSON")
				}
				body = json.RawMessage(data)
			}

			header := http.Header{}
			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected Name: value", h)
				}
				header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			resp, err := a.client.Do(cmd.Context(), method, args[1], body, header)
			if err != nil {
				return failed("send request", err)
			}

			a.log.Debugf("[CLIENT] %s %s returned %d", method, args[1], resp.StatusCode)
			if len(bytes.TrimSpace(resp.Body)) == 0 {
				a.printf(cmd, "HTTP %d\n", resp.StatusCode)
				return nil
			}
			if !json.Valid(resp.Body) {
				writeString(cmd.OutOrStdout(), string(resp.Body))
				return nil
			}
			if a.format == output.FormatTable {
				return output.NewFormatter().FormatJSON(json.RawMessage(resp.Body), cmd.OutOrStdout())
			}
			return output.NewFormatter().Format(json.RawMessage(resp.Body), a.format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Read the JSON request body from a file")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header, e.g. 'X-Trace: 1' (repeatable)")
	return cmd
}
