package purchase

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/gctasks"
)

type cloudTaskMock struct {
	queue    string
	requests []gctasks.Request
}

func (m *cloudTaskMock) CreateTask(ctx context.Context, queueID string, request gctasks.Request) error {
	m.queue = queueID
	m.requests = append(m.requests, request)
	return nil
}

func (m *cloudTaskMock) Close() error {
	return nil
}

func TestNotifyPurchasePaid(t *testing.T) {
	testCases := []struct {
		name      string
		currency  string
		total     string
		wantTotal string
	}{
		{name: "two decimal currency", currency: "USD", total: "50", wantTotal: "50.00"},
		{name: "zero decimal currency", currency: "JPY", total: "1500", wantTotal: "1500"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cloudTask := &cloudTaskMock{}
			notifier := NewCloudTaskNotifier(newDiscardLogger(), cloudTask, "https://notify.example/confirmations", "purchase-confirmation")

			p := Purchase{
				ID:          "TP1",
				BuyerEmail:  "member@example.com",
				Currency:    tc.currency,
				TotalAmount: decimal.RequireFromString(tc.total),
				Items:       []PurchasedItem{{ID: "PI1"}, {ID: "PI2"}},
			}

			require.NoError(t, notifier.NotifyPurchasePaid(context.Background(), p))

			require.Len(t, cloudTask.requests, 1)
			req := cloudTask.requests[0]
			assert.Equal(t, "purchase-confirmation", cloudTask.queue)
			assert.Equal(t, "purchase-paid-TP1", req.Name)
			assert.Equal(t, cloudtaskspb.HttpMethod_POST, req.Method)
			assert.Equal(t, "https://notify.example/confirmations", req.URL)

			var body map[string]any
			require.NoError(t, json.Unmarshal(req.Body, &body))
			assert.Equal(t, tc.wantTotal, body["total_amount"])
			assert.Equal(t, "TP1", body["purchase_id"])
			assert.Equal(t, float64(2), body["item_count"])
		})
	}
}
