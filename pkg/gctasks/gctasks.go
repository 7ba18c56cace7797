package gctasks

import (
	"context"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type Client interface {
	CreateTask(ctx context.Context, queueID string, request Request) error
	Close() error
}

type Request struct {
	URL    string
	Method cloudtaskspb.HttpMethod
	Header map[string]string
	Body   []byte
	// Name makes the task idempotent on the queue side when set.
	Name string
}

type tasksClientImpl struct {
	projectID  string
	locationID string
	logger     *logrus.Logger
	client     *cloudtasks.Client
}

func NewGCTasks(ctx context.Context, logger *logrus.Logger, projectID, locationID string, credsJSON []byte) (Client, error) {
	opts := []option.ClientOption{}
	if len(credsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credsJSON))
	}

	c, err := cloudtasks.NewClient(ctx, opts...)
	if err != nil {
		logger.WithField("object", "gctasks").Error(err)
		return nil, err
	}

	return &tasksClientImpl{
		projectID:  projectID,
		locationID: locationID,
		logger:     logger,
		client:     c,
	}, nil
}

func (tc *tasksClientImpl) Close() error {
	return tc.client.Close()
}

func (tc *tasksClientImpl) queuePath(queueID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", tc.projectID, tc.locationID, queueID)
}

func (tc *tasksClientImpl) CreateTask(ctx context.Context, queueID string, request Request) error {
	queuePath := tc.queuePath(queueID)

	task := &cloudtaskspb.Task{
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				Url:        request.URL,
				HttpMethod: request.Method,
				Headers:    request.Header,
				Body:       request.Body,
			},
		},
	}
	if request.Name != "" {
		task.Name = fmt.Sprintf("%s/tasks/%s", queuePath, request.Name)
	}

	_, err := tc.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: queuePath,
		Task:   task,
	})
	if err != nil {
		tc.logger.WithContext(ctx).WithFields(logrus.Fields{
			"object":    "gctasks",
			"queueId":   queueID,
			"queuePath": queuePath,
		}).Error(err)
		return err
	}

	return nil
}
