// relayctl is the operator CLI for the vendor relay. It can compute
// envelope headers for a payload, deliver signed test messages, and probe
// a running relay.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rylie-seo/vendor-relay/internal/guard"
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Vendor relay operator CLI",
	Long: `relayctl is the command-line interface for the Rylie SEO vendor relay.

Compute signed envelope headers, deliver test messages to a running relay,
and check relay health from your terminal.`,
	Version: "1.0.0",
}

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Compute envelope headers for a payload",
	Long:  "Read a payload from a file (or stdin) and print the signed envelope headers a vendor delivery would carry.",
	Example: `  relayctl sign report.json --secret my-hmac-secret
  cat report.json | relayctl sign --secret my-hmac-secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			return fmt.Errorf("--secret is required")
		}

		body, err := readPayload(args)
		if err != nil {
			return err
		}

		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		signature := guard.NewSigner(secret).Sign(timestamp, body)

		fmt.Printf("X-Vendor-Timestamp: %s\n", timestamp)
		fmt.Printf("X-Vendor-Signature: %s\n", signature)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Sign and deliver a report to a relay",
	Long:  "Read a report payload from a file (or stdin), sign it, and POST it to a relay's report endpoint.",
	Example: `  relayctl report report.json --secret my-hmac-secret --url http://localhost:8000
  cat report.json | relayctl report --secret my-hmac-secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		baseURL, _ := cmd.Flags().GetString("url")
		if secret == "" {
			return fmt.Errorf("--secret is required")
		}

		body, err := readPayload(args)
		if err != nil {
			return err
		}
		if !json.Valid(body) {
			return fmt.Errorf("payload is not valid JSON")
		}

		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		signature := guard.NewSigner(secret).Sign(timestamp, body)

		req, err := http.NewRequest(http.MethodPost,
			strings.TrimRight(baseURL, "/")+"/vendor/seo/report", strings.NewReader(string(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Vendor-Timestamp", timestamp)
		req.Header.Set("X-Vendor-Signature", signature)

		resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
		if err != nil {
			return fmt.Errorf("failed to deliver report: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		fmt.Printf("%s\n%s\n", resp.Status, respBody)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("relay rejected the report")
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check relay health",
	Example: `  relayctl health --url http://localhost:8000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("url")

		resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return fmt.Errorf("relay unreachable: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		fmt.Printf("%s\n%s\n", resp.Status, body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("relay unhealthy")
		}
		return nil
	},
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read payload from stdin: %w", err)
	}
	return body, nil
}

func init() {
	rootCmd.PersistentFlags().String("url", "http://localhost:8000", "relay base URL")
	rootCmd.PersistentFlags().String("secret", "", "HMAC secret shared with the relay")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
