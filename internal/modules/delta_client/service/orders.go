package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"delta_bot/internal/models"
)

const ordersPath = "/v2/orders"

type orderBody struct {
	ProductID     int     `json:"product_id"`
	Size          float64 `json:"size"`
	Side          string  `json:"side"`
	OrderType     string  `json:"order_type"`
	ClientOrderID string  `json:"client_order_id"`
}

type orderResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	} `json:"result"`
}

// Submit sends one signed market order. It never retries: a repeated entry
// is worse than a missed one. Anything but HTTP 200 is a rejection.
func (c *Client) Submit(ctx context.Context, o models.OrderRequest) (models.OrderResult, error) {
	kind := o.Kind
	if kind == "" {
		kind = models.OrderMarket
	}
	clientID := uuid.NewString()
	res := models.OrderResult{ClientID: clientID}

	if o.Size <= 0 {
		return res, fmt.Errorf("%w: size %.8f", models.ErrOrderRejected, o.Size)
	}

	payload, err := sonic.Marshal(orderBody{
		ProductID:     o.ProductID,
		Size:          o.Size,
		Side:          o.Side.Wire(),
		OrderType:     string(kind),
		ClientOrderID: clientID,
	})
	if err != nil {
		return res, fmt.Errorf("marshal order: %w", err)
	}

	req, err := c.generateRequest(ctx, http.MethodPost, ordersPath, payload, true)
	if err != nil {
		return res, fmt.Errorf("%w: %v", models.ErrOrderRejected, err)
	}
	status, data, err := c.do(req)
	res.StatusCode = status
	if err != nil {
		return res, fmt.Errorf("%w: %v", models.ErrOrderRejected, err)
	}
	if status != http.StatusOK {
		c.log.Warn("order rejected",
			zap.String("symbol", o.Symbol),
			zap.String("side", string(o.Side)),
			zap.Int("status", status),
			zap.String("body", truncate(data)))
		return res, fmt.Errorf("%w: http %d: %s", models.ErrOrderRejected, status, truncate(data))
	}

	res.Accepted = true
	var r orderResponse
	if err := sonic.Unmarshal(data, &r); err == nil && r.Result.ID != 0 {
		res.OrderID = strconv.FormatInt(r.Result.ID, 10)
		res.Status = r.Result.State
	}
	return res, nil
}
