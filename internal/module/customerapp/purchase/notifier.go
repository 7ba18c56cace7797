package purchase

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/currency"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/gctasks"
)

// Notifier hands purchase confirmations to the notification service.
type Notifier interface {
	NotifyPurchasePaid(ctx context.Context, p Purchase) error
}

type cloudTaskNotifier struct {
	logger    *logrus.Logger
	cloudTask gctasks.Client
	url       string
	queue     string
}

func NewCloudTaskNotifier(logger *logrus.Logger, cloudTask gctasks.Client, url, queue string) Notifier {
	return &cloudTaskNotifier{
		logger:    logger,
		cloudTask: cloudTask,
		url:       url,
		queue:     queue,
	}
}

// NotifyPurchasePaid implements Notifier. The task is named after the
// purchase so a repeated confirmation is dropped by the queue.
func (n *cloudTaskNotifier) NotifyPurchasePaid(ctx context.Context, p Purchase) error {
	body, err := json.Marshal(ConfirmationNotification{
		PurchaseID:  p.ID,
		BuyerEmail:  p.BuyerEmail,
		Currency:    p.Currency,
		TotalAmount: currency.Format(p.TotalAmount, p.Currency),
		ItemCount:   len(p.Items),
	})
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithField("purchase_id", p.ID).Error("an error occurred while encoding the confirmation")
		return err
	}

	return n.cloudTask.CreateTask(ctx, n.queue, gctasks.Request{
		URL:    n.url,
		Method: cloudtaskspb.HttpMethod_POST,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
		Name:   "purchase-paid-" + p.ID,
	})
}
