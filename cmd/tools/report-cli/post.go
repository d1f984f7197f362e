package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apphttp "vinreport-workers/internal/common/http"
)

type postOptions struct {
	jsonFile string
	outFile  string
	timeout  time.Duration
}

func newPostCmd() *cobra.Command {
	opts := &postOptions{}
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "POST a JSON payload and print the response",
		Long: `POST a JSON payload to url.

The payload is read from -j, or from stdin until an empty line.
A 200 response is pretty-printed, or written to -o.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apphttp.NewClient(opts.timeout)
			return runPost(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.jsonFile, "json", "j", "", "file with the JSON payload")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "file to save the response into")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	return cmd
}

func runPost(ctx context.Context, client *apphttp.Client, in io.Reader, out io.Writer, url string, opts *postOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := readPayload(in, opts.jsonFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Performing HTTP request to %s ...\n", url)
	resp, err := client.PostRaw(ctx, url, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Error %d: %s", resp.StatusCode, reason(resp))
	}

	body := prettyJSON(resp.Body)
	if opts.outFile == "" {
		fmt.Fprintln(out, "Ok, response:")
		fmt.Fprintln(out, body)
		return nil
	}
	if err := os.WriteFile(opts.outFile, []byte(body), 0o644); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	fmt.Fprintf(out, "Ok, response has been saved into %s\n", opts.outFile)
	return nil
}

// readPayload returns compact JSON from path, or from in up to the first
// empty line when path is empty.
func readPayload(in io.Reader, path string) ([]byte, error) {
	var raw []byte
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = data
	} else {
		var lines []string
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				break
			}
			lines = append(lines, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = []byte(strings.Join(lines, "\n"))
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// prettyJSON indents a JSON body with sorted keys; anything else is
// returned as text.
func prettyJSON(body []byte) string {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return string(body)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return string(body)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func reason(resp *apphttp.Response) string {
	r := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	r = strings.TrimSpace(r)
	if r == "" {
		r = http.StatusText(resp.StatusCode)
	}
	return r
}
