package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/clients"
	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/json"
	"github.com/ajitpratap0/objectpool/pkg/logger"
)

type fetchResult struct {
	URL        string              `json:"url"`
	StatusCode int                 `json:"status_code"`
	Header     map[string][]string `json:"header"`
	Content    string              `json:"content"`
	PoolKey    string              `json:"pool_key"`
}

func (c *cli) fetchCmd() *cobra.Command {
	var timeout time.Duration
	var repeat, retries int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "GET a URL through a pooled HTTP client",
		Long: `Fetch a URL with a client taken from the per-destination client pool.
With --repeat the same destination pool serves every request, so only as
many clients are built as requests run at once.

Example:
  objectpool fetch https://example.com/ --repeat 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("timeout") {
				timeout = c.cfg.HTTP.RequestTimeout
			}
			if cmd.Flags().Changed("retries") {
				c.cfg.HTTP.MaxRetries = retries
			}
			return c.runFetch(cmd, args[0], timeout, repeat, asJSON)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Request timeout, defaults to http.request_timeout")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "Number of sequential requests")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retries of connection failures, defaults to http.max_retries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")

	return cmd
}

func (c *cli) runFetch(cmd *cobra.Command, raw string, timeout time.Duration, repeat int, asJSON bool) error {
	target, err := url.Parse(raw)
	if err != nil || !target.IsAbs() {
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("invalid url %q", raw)).
			WithDetail("url", raw)
	}
	if repeat < 1 {
		return errors.New(errors.ErrorTypeValidation, "repeat must be at least 1")
	}

	base := &url.URL{Scheme: target.Scheme, Host: target.Host, User: target.User}
	ref := target.RequestURI()

	ctx := context.WithValue(cmd.Context(), logger.CommandKey, "fetch")
	ctx = context.WithValue(ctx, logger.RequestIDKey, uuid.NewString())
	log := logger.WithContext(ctx)
	hp := clients.NewHTTPClientPool(&c.cfg.HTTP, log)
	defer func() {
		if cerr := hp.Close(); cerr != nil {
			log.Warn("failed to close client pool", zap.Error(cerr))
		}
	}()

	var msg *clients.Message
	for i := 0; i < repeat; i++ {
		msg, err = hp.GetMessageAndContentRetry(ctx, base, timeout, func(client *clients.Client) (*http.Response, error) {
			return client.Get(ctx, ref, nil)
		})
		if err != nil {
			return err
		}
		log.Debug("fetched", zap.String("url", target.String()), zap.Stringer("message", msg))
	}

	key := hp.Key(base, timeout)
	if asJSON {
		return json.MarshalIndentToWriter(c.out, fetchResult{
			URL:        target.String(),
			StatusCode: msg.StatusCode,
			Header:     msg.Header,
			Content:    msg.Content,
			PoolKey:    key,
		}, "", "  ")
	}

	fmt.Fprintf(c.out, "%s %d\n", target, msg.StatusCode)
	fmt.Fprintf(c.out, "Pool: %s (%d clients)\n", key, hp.Stats()[key].Created)
	_, err = fmt.Fprintln(c.out, msg.Content)
	return err
}
