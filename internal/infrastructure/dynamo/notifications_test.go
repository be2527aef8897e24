package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bed-alerts/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

var fixedNow = time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)

func newTestRepo(api API) *NotificationRepo {
	r := NewNotificationRepo(api, "notifications", domain.Collaborators{})
	r.now = func() time.Time { return fixedNow }
	return r
}

func sampleNotification(t *testing.T) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(domain.Snapshot{
		ID:           "n1",
		Bed:          domain.Bed{ID: "b1", Name: "Bed 1", Ward: "W1", NotificationsEnabled: true},
		Organization: domain.Organization{ID: "o1", NotificationsEnabled: true},
		Users: []domain.User{{
			ID:           "u1",
			EnabledWards: []string{"W1"},
			Devices:      []domain.UserDevice{{ID: "d1", EndpointARN: "arn:d1", NotificationsEnabled: true}},
		}},
		Event: domain.LocationEvent{Source: "S", Timestamp: 1},
	}, domain.Collaborators{Clock: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return n
}

func TestCreate_WritesItemWithSourceAttribute(t *testing.T) {
	api := &mockAPI{}
	var captured *dynamodb.PutItemInput
	api.On("PutItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.PutItemInput) }).
		Return(&dynamodb.PutItemOutput{}, nil)

	_, err := newTestRepo(api).Create(context.Background(), sampleNotification(t))
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "attribute_not_exists(#pk)", *captured.ConditionExpression)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "n1"}, captured.Item[fieldNotificationID])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "S"}, captured.Item[fieldEventSource])
	_, hasUser := captured.Item[fieldUserConfirmation]
	assert.False(t, hasUser)
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	_, err := newTestRepo(api).Create(context.Background(), sampleNotification(t))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGet_MissingItemIsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := newTestRepo(api).Get(context.Background(), "nope")
	var nf *domain.NotificationNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.NotificationID)
}

func TestGet_RestoresConfirmations(t *testing.T) {
	n := sampleNotification(t)
	_, err := n.ConfirmForUser("u1")
	require.NoError(t, err)
	_, err = n.ConfirmForEvent(domain.LocationEvent{Source: "S", Timestamp: 2})
	require.NoError(t, err)

	item, err := attributevalue.MarshalMap(notificationItem{Snapshot: n.Snapshot(), EventSource: "S"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	got, err := newTestRepo(api).Get(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, n.Snapshot(), got.Snapshot())
}

func TestUpdate_GuardsEachConfirmation(t *testing.T) {
	n := sampleNotification(t)
	_, err := n.ConfirmForUser("u1")
	require.NoError(t, err)

	api := &mockAPI{}
	var captured *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	_, err = newTestRepo(api).Update(context.Background(), n)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t,
		"attribute_exists(#pk) AND (attribute_not_exists(#user_confirmation) OR #user_confirmation.#confirmed_at = :user_confirmation_at)",
		*captured.ConditionExpression)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", *captured.UpdateExpression)
	assert.Equal(t, fieldUpdatedAt, captured.ExpressionAttributeNames["#f0"])
	assert.Equal(t, fieldUserConfirmation, captured.ExpressionAttributeNames["#f1"])
	assert.Equal(t, fieldConfirmedAt, captured.ExpressionAttributeNames["#confirmed_at"])
}

func TestUpdate_ConditionFailure(t *testing.T) {
	cases := []struct {
		name   string
		failed *types.ConditionalCheckFailedException
		check  func(t *testing.T, err error)
	}{
		{
			name:   "item missing",
			failed: &types.ConditionalCheckFailedException{},
			check: func(t *testing.T, err error) {
				var nf *domain.NotificationNotFoundError
				assert.ErrorAs(t, err, &nf)
			},
		},
		{
			name: "confirmation already stored",
			failed: &types.ConditionalCheckFailedException{Item: map[string]types.AttributeValue{
				fieldNotificationID: &types.AttributeValueMemberS{Value: "n1"},
			}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrConflict)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := sampleNotification(t)
			_, err := n.ConfirmForEvent(domain.LocationEvent{Source: "S"})
			require.NoError(t, err)

			api := &mockAPI{}
			api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, tc.failed)

			_, err = newTestRepo(api).Update(context.Background(), n)
			tc.check(t, err)
		})
	}
}

func TestUpdate_TransportErrorIsWrapped(t *testing.T) {
	boom := errors.New("throttled")
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := newTestRepo(api).Update(context.Background(), sampleNotification(t))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestList_FollowsPages(t *testing.T) {
	item, err := attributevalue.MarshalMap(notificationItem{Snapshot: sampleNotification(t).Snapshot(), EventSource: "S"})
	require.NoError(t, err)
	next := map[string]types.AttributeValue{fieldNotificationID: &types.AttributeValueMemberS{Value: "n1"}}

	api := &mockAPI{}
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey == nil })).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item}, LastEvaluatedKey: next}, nil).Once()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey != nil })).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item}}, nil).Once()

	got, err := newTestRepo(api).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	api.AssertExpectations(t)
}

func TestListBySource_QueriesIndex(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		src, ok := in.ExpressionAttributeValues[":src"].(*types.AttributeValueMemberS)
		return *in.IndexName == sourceIndex && ok && src.Value == "S"
	})).Return(&dynamodb.QueryOutput{}, nil)

	got, err := newTestRepo(api).ListBySource(context.Background(), "S")
	require.NoError(t, err)
	assert.Empty(t, got)
	api.AssertExpectations(t)
}
