// workers/order_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/services"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderSyncClient pulls completed orders from the commerce service into the
// local order_mirror table and feeds each one through the earn flow. The earn
// flow's per-order idempotency makes re-delivery of the same order harmless.
type OrderSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	Earn       *services.EarnService
}

func NewOrderSyncClient(db *gorm.DB, earn *services.EarnService) *OrderSyncClient {
	baseURL := os.Getenv("COMMERCE_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("COMMERCE_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LOYALTY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LOYALTY_SERVICE_TOKEN environment variable is required for order sync")
	}

	return &OrderSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		Earn:    earn,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *OrderSyncClient) GetChangedOrders(ctx context.Context, since time.Time) ([]models.OrderMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/orders", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	q.Set("status", "completed")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call commerce service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("commerce service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Orders []models.OrderMirror `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode commerce service response: %w", err)
	}

	return response.Orders, nil
}

// PollOrders upserts changed orders and runs the earn flow for each. The sync
// watermark only advances after a successful upsert, so a failed batch is
// retried on the next tick.
func PollOrders(ctx context.Context, client *OrderSyncClient, pollInterval time.Duration) {
	log.Info("Starting order polling (commerce service → order_mirror)…")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Order polling stopped")
			return
		case <-ticker.C:
			batchTime := time.Now().UTC()

			orders, err := client.GetChangedOrders(ctx, lastSyncTime)
			if err != nil {
				log.Errorf("error polling orders: %v", err)
				continue
			}
			if len(orders) == 0 {
				continue
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "order_number"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"external_user_id", "total", "status", "completed_at", "updated_at",
					}),
				},
			).Create(&orders).Error; err != nil {
				log.Errorf("failed to upsert %d order(s) into order_mirror: %v", len(orders), err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = batchTime
			log.Infof("upserted %d order(s) into order_mirror", len(orders))

			client.runEarnPass()
		}
	}
}

// runEarnPass pushes recently mirrored completed orders through the earn flow.
// It re-reads from order_mirror rather than the fetched batch so an order whose
// member hadn't synced yet is retried on the next tick. Per-order idempotency
// in the earn flow makes repeated passes safe.
func (c *OrderSyncClient) runEarnPass() {
	var orders []models.OrderMirror
	since := time.Now().UTC().Add(-48 * time.Hour)
	if err := c.DB.Where("status = ? AND completed_at >= ?", "completed", since).
		Find(&orders).Error; err != nil {
		log.Errorf("failed to load orders for earn pass: %v", err)
		return
	}

	for _, order := range orders {
		result, err := c.Earn.EarnOnOrder(order.OrderNumber)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrMemberNotFound):
				log.Warnf("no member yet for order %s, will retry", order.OrderNumber)
			case services.IsClientError(err):
				// e.g. the order mirror flipped out of completed; not a system fault.
				log.Warnf("order %s not eligible to earn: %v", order.OrderNumber, err)
			default:
				log.Errorf("earn failed for order %s: %v", order.OrderNumber, err)
			}
			continue
		}
		if result.PointsGranted > 0 {
			log.Infof("order %s earned %d points for member %s",
				order.OrderNumber, result.PointsGranted, result.MemberID)
		}
	}
}
