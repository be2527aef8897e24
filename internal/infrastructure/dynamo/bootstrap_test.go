package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCreator struct{ mock.Mock }

func (m *mockCreator) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func TestBootstrap_CreatesTableWithSourceIndex(t *testing.T) {
	c := &mockCreator{}
	var captured *dynamodb.CreateTableInput
	c.On("CreateTable", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.CreateTableInput) }).
		Return(&dynamodb.CreateTableOutput{}, nil)

	require.NoError(t, Bootstrap(context.Background(), c, "notifications"))

	require.NotNil(t, captured)
	assert.Equal(t, "notifications", aws.ToString(captured.TableName))
	assert.Equal(t, fieldNotificationID, aws.ToString(captured.KeySchema[0].AttributeName))
	require.Len(t, captured.GlobalSecondaryIndexes, 1)
	idx := captured.GlobalSecondaryIndexes[0]
	assert.Equal(t, sourceIndex, aws.ToString(idx.IndexName))
	assert.Equal(t, fieldEventSource, aws.ToString(idx.KeySchema[0].AttributeName))
	assert.Equal(t, fieldCreatedAt, aws.ToString(idx.KeySchema[1].AttributeName))
}

func TestBootstrap_ExistingTableIsFine(t *testing.T) {
	c := &mockCreator{}
	c.On("CreateTable", mock.Anything, mock.Anything).Return(nil, &types.ResourceInUseException{})

	assert.NoError(t, Bootstrap(context.Background(), c, "notifications"))
}

func TestBootstrap_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("access denied")
	c := &mockCreator{}
	c.On("CreateTable", mock.Anything, mock.Anything).Return(nil, boom)

	err := Bootstrap(context.Background(), c, "notifications")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "create table notifications")
}
