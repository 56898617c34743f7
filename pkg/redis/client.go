package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	runLockKeyPrefix = "campaign_run_lock:"
	summaryKeyPrefix = "campaign_summary:"
	summaryTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// AcquireRunLock takes the cross-process run lock for one campaign. It
// returns false when another process already holds it. The TTL bounds how
// long a crashed run can block the campaign.
func (c *Client) AcquireRunLock(ctx context.Context, campaignID int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%d", runLockKeyPrefix, campaignID)

	result := c.client.Do(ctx, c.client.B().Set().Key(key).Value("1").Nx().Ex(ttl).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire run lock: %w", result.Error())
	}

	return true, nil
}

func (c *Client) ReleaseRunLock(ctx context.Context, campaignID int64) error {
	key := fmt.Sprintf("%s%d", runLockKeyPrefix, campaignID)

	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	return nil
}

// CacheSummary stores the delivery breakdown of a closed campaign so the
// status overview can skip the aggregate query for it.
func (c *Client) CacheSummary(ctx context.Context, campaignID int64, counts domain.StatusCounts) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	key := fmt.Sprintf("%s%d", summaryKeyPrefix, campaignID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(summaryTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}

	logger.Debugf("Cached summary for campaign %d", campaignID)

	return nil
}

func (c *Client) GetCachedSummary(ctx context.Context, campaignID int64) (*domain.StatusCounts, error) {
	key := fmt.Sprintf("%s%d", summaryKeyPrefix, campaignID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached summary: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached summary: %w", err)
	}

	var counts domain.StatusCounts
	if err := json.Unmarshal([]byte(data), &counts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	return &counts, nil
}

// DropSummary removes one campaign's cached summary. Called when the
// history pruner deletes the underlying ledger rows.
func (c *Client) DropSummary(ctx context.Context, campaignID int64) error {
	key := fmt.Sprintf("%s%d", summaryKeyPrefix, campaignID)

	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to drop cached summary: %w", err)
	}

	return nil
}

// DropAllSummaries removes every cached campaign summary.
func (c *Client) DropAllSummaries(ctx context.Context) error {
	pattern := fmt.Sprintf("%s*", summaryKeyPrefix)

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return fmt.Errorf("failed to scan summary keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	for _, key := range keys {
		if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
			logger.Warnf("failed to drop cached summary %q: %v", key, err)
		}
	}

	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
