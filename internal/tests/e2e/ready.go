// Package e2e drives the server against the docker compose stack.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/issuedesk/apiserver/config"
	"github.com/issuedesk/apiserver/internal/mq"
	"github.com/issuedesk/apiserver/internal/storage"
)

// poll calls probe every interval until it succeeds or ctx expires.
func poll(ctx context.Context, interval time.Duration, probe func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := probe(probeCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up: %w", err)
		case <-ticker.C:
		}
	}
}

// brokerReady connects to the configured broker and disconnects again.
func brokerReady(cfg config.MQConfig) func(context.Context) error {
	return func(ctx context.Context) error {
		broker, err := mq.NewFromConfig(ctx, cfg)
		if err != nil || broker == nil {
			return err
		}
		return broker.Close()
	}
}

// storageReady opens the configured object store, which also ensures the
// bucket exists.
func storageReady(cfg config.StorageConfig) func(context.Context) error {
	return func(ctx context.Context) error {
		objects, err := storage.NewFromConfig(ctx, cfg)
		if err != nil || objects == nil {
			return err
		}
		return objects.Close()
	}
}

func healthy(url string) func(context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
}
