package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var headers []string
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Send a protected GET through the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return do(cmd, http.MethodGet, args[0], "", headers)
		},
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header, \"Name: value\"")
	return cmd
}

func postCmd() *cobra.Command {
	var (
		headers []string
		data    string
	)
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "Send a protected POST through the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return do(cmd, http.MethodPost, args[0], data, headers)
		},
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header, \"Name: value\"")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body; @file reads it from file")
	return cmd
}

func do(cmd *cobra.Command, method, url, data string, headers []string) error {
	c, err := wire.Client(endpoint)
	if err != nil {
		return err
	}

	var body io.Reader
	if strings.HasPrefix(data, "@") {
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	} else if data != "" {
		body = strings.NewReader(data)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), method, url, body)
	if err != nil {
		return err
	}
	for _, h := range headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("bad header %q, want \"Name: value\"", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintln(os.Stderr, resp.Status)
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
