package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// newRemoteCmd queries the read-only admin endpoints of a running server.
func newRemoteCmd() *cobra.Command {
	var baseURL string
	remote := &cobra.Command{
		Use:   "remote",
		Short: "Query a running server's admin endpoints",
	}
	remote.PersistentFlags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")

	get := func(path string, q url.Values) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path + "?" + q.Encode()
			cl := &http.Client{Timeout: 5 * time.Second}
			resp, err := cl.Get(u)
			if err != nil {
				return fmt.Errorf("request: %w", err)
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(b)))
			if resp.StatusCode/100 != 2 {
				return fmt.Errorf("%s: %s", path, resp.Status)
			}
			return nil
		}
	}

	remote.AddCommand(
		&cobra.Command{
			Use:   "slots <item-uuid>",
			Short: "List an item's slots",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return get("/admin/v1/slots", url.Values{"item": {args[0]}})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "items <owner-id>",
			Short: "List an actor's items",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return get("/admin/v1/items", url.Values{"owner": {args[0]}})(cmd, args)
			},
		},
	)
	return remote
}
