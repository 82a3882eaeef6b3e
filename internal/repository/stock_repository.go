package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pinmarket/payment-service/internal/domain"
)

// StockRepository reads and claims pre-provisioned digital codes. Claiming is
// a conditional write keyed on the item still being available, so two orders
// racing for the last code get exactly one winner.
type StockRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewStockRepository(client *dynamodb.Client, tableName string) *StockRepository {
	return &StockRepository{
		client:    client,
		tableName: tableName,
	}
}

func stockPK(productID string) string {
	return "PRODUCT#" + productID
}

// ListAvailable returns up to limit available items for the product. The
// result is a snapshot; callers must still claim conditionally.
func (r *StockRepository) ListAvailable(ctx context.Context, productID string, limit int) ([]domain.StockItem, error) {
	items := make([]domain.StockItem, 0, limit)
	var lastKey map[string]types.AttributeValue

	for len(items) < limit {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :product AND begins_with(SK, :prefix)"),
			FilterExpression:       aws.String("#status = :available"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":product":   &types.AttributeValueMemberS{Value: stockPK(productID)},
				":prefix":    &types.AttributeValueMemberS{Value: "STOCK#"},
				":available": &types.AttributeValueMemberS{Value: string(domain.StockStatusAvailable)},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query stock: %w", err)
		}

		for _, raw := range out.Items {
			var item domain.StockItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, err
			}
			items = append(items, item)
			if len(items) == limit {
				break
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return items, nil
}

// ClaimItem transitions one item from available to sold and binds it to the
// order. Returns ErrItemTaken when another order claimed it first.
func (r *StockRepository) ClaimItem(ctx context.Context, productID, itemID, orderID string) (*domain.StockItem, error) {
	now := time.Now().UTC()
	soldAt, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, err
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: stockPK(productID)},
			"SK": &types.AttributeValueMemberS{Value: "STOCK#" + itemID},
		},
		UpdateExpression:    aws.String("SET #status = :sold, order_id = :order, sold_at = :now"),
		ConditionExpression: aws.String("#status = :available"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sold":      &types.AttributeValueMemberS{Value: string(domain.StockStatusSold)},
			":available": &types.AttributeValueMemberS{Value: string(domain.StockStatusAvailable)},
			":order":     &types.AttributeValueMemberS{Value: orderID},
			":now":       soldAt,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrItemTaken
		}
		return nil, fmt.Errorf("failed to claim stock item: %w", err)
	}

	var item domain.StockItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

var ErrItemTaken = errors.New("stock item already claimed")
