package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/scan"
)

// Notifier is the interface for pushing analysis alerts.
type Notifier interface {
	SendRegimeChange(ctx context.Context, symbol string, prev, curr *gex.RegimeAnalysis, diff gex.RegimeDiff) error
	SendScanFailure(ctx context.Context, result *scan.BatchResult, duration time.Duration) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *config.NotifyConfig
	logger     *zap.Logger
}

func NewClient(cfg *config.NotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// SendRegimeChange pushes an alert for a significant regime transition.
func (c *Client) SendRegimeChange(ctx context.Context, symbol string, prev, curr *gex.RegimeAnalysis, diff gex.RegimeDiff) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Regime Change: %s", symbol)
	message := FormatRegimeChangeMessage(symbol, prev, curr, diff)
	tags := c.config.Tags + ",rotating_light"
	priority := c.config.Priority
	if diff.Significant {
		priority = "high"
	}

	return c.send(ctx, title, message, tags, priority)
}

// SendScanFailure reports a scan pass that left symbols unanalyzed.
func (c *Client) SendScanFailure(ctx context.Context, result *scan.BatchResult, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Scan Incomplete: %d/%d symbols failed", result.Failed, result.Total)
	message := FormatScanFailureMessage(result, duration)
	tags := c.config.Tags + ",x"

	return c.send(ctx, title, message, tags, "high")
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification rejected: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent",
		zap.String("title", title),
		zap.String("priority", priority),
	)
	return nil
}
