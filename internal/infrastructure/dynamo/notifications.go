package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bed-alerts/internal/domain"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// notificationItem is the stored form of a notification. event_source is
// denormalised to the top level so the source GSI can key on it.
type notificationItem struct {
	domain.Snapshot
	EventSource string `dynamodbav:"event_source"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    API
	tableName string
	collab    domain.Collaborators
	now       func() time.Time
}

// NewNotificationRepo returns a repository whose loaded notifications are
// wired to collab.
func NewNotificationRepo(client API, tableName string, collab domain.Collaborators) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName, collab: collab, now: time.Now}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	ts := r.now().UTC().Format(time.RFC3339Nano)
	item, err := attributevalue.MarshalMap(notificationItem{
		Snapshot:    n.Snapshot(),
		EventSource: n.Event().Source,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldNotificationID},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("notification %s already exists: %w", n.ID(), domain.ErrConflict)
		}
		return nil, fmt.Errorf("put notification %s: %w", n.ID(), err)
	}
	return n, nil
}

func (r *NotificationRepo) Get(ctx context.Context, id string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldNotificationID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get notification %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, &domain.NotificationNotFoundError{NotificationID: id}
	}
	return r.decode(out.Item)
}

// List scans the whole table, following pagination.
func (r *NotificationRepo) List(ctx context.Context) ([]*domain.Notification, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	var notifications []*domain.Notification
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan notifications: %w", err)
		}
		decoded, err := r.decodeAll(page.Items)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, decoded...)
	}
	return notifications, nil
}

// ListBySource queries the source GSI for notifications raised by source.
func (r *NotificationRepo) ListBySource(ctx context.Context, source string) ([]*domain.Notification, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(sourceIndex),
		KeyConditionExpression: aws.String("#src = :src"),
		ExpressionAttributeNames: map[string]string{
			"#src": fieldEventSource,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":src": &types.AttributeValueMemberS{Value: source},
		},
	})
	var notifications []*domain.Notification
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query notifications by source %s: %w", source, err)
		}
		decoded, err := r.decodeAll(page.Items)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, decoded...)
	}
	return notifications, nil
}

// Update writes the notification's confirmations. Each confirmation is
// write-once at the storage level too: a stored confirmation with a different
// timestamp makes the update fail with domain.ErrConflict.
func (r *NotificationRepo) Update(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	snap := n.Snapshot()
	updates := map[string]interface{}{
		fieldUpdatedAt: r.now().UTC().Format(time.RFC3339Nano),
	}
	conds := []string{"attribute_exists(#pk)"}
	names := map[string]string{"#pk": fieldNotificationID}
	values := map[string]types.AttributeValue{}

	guard := func(field string, value interface{}, confirmedAt time.Time) error {
		at, err := attributevalue.Marshal(confirmedAt)
		if err != nil {
			return fmt.Errorf("marshal %s timestamp: %w", field, err)
		}
		updates[field] = value
		cond, cn, cv := writeOnceCondition(field, at)
		conds = append(conds, cond)
		for k, v := range cn {
			names[k] = v
		}
		for k, v := range cv {
			values[k] = v
		}
		return nil
	}
	if uc := snap.UserConfirmation; uc != nil {
		if err := guard(fieldUserConfirmation, uc, uc.ConfirmedAt); err != nil {
			return nil, err
		}
	}
	if ac := snap.AutoConfirmation; ac != nil {
		if err := guard(fieldAutoConfirmation, ac, ac.ConfirmedAt); err != nil {
			return nil, err
		}
	}

	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	for k, v := range ue.Names {
		names[k] = v
	}
	for k, v := range ue.Values {
		values[k] = v
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldNotificationID, snap.ID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(strings.Join(conds, " AND ")),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if ccf.Item == nil {
				return nil, &domain.NotificationNotFoundError{NotificationID: snap.ID}
			}
			return nil, fmt.Errorf("notification %s was confirmed concurrently: %w", snap.ID, domain.ErrConflict)
		}
		return nil, fmt.Errorf("update notification %s: %w", snap.ID, err)
	}
	return n, nil
}

func (r *NotificationRepo) decode(item map[string]types.AttributeValue) (*domain.Notification, error) {
	var stored notificationItem
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	n, err := domain.NewNotification(stored.Snapshot, r.collab)
	if err != nil {
		return nil, fmt.Errorf("restore notification %s: %w", stored.ID, err)
	}
	return n, nil
}

func (r *NotificationRepo) decodeAll(items []map[string]types.AttributeValue) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0, len(items))
	for _, item := range items {
		n, err := r.decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
