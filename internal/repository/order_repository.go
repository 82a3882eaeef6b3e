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

// OrderRepository is the order ledger. Every state transition goes through a
// conditional update so concurrent callbacks cannot both win the same
// transition; there is no read-then-write anywhere in this file.
type OrderRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewOrderRepository(client *dynamodb.Client, tableName string) *OrderRepository {
	return &OrderRepository{
		client:    client,
		tableName: tableName,
	}
}

func orderPK(orderID string) string {
	return "ORDER#" + orderID
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	av, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: orderPK(order.OrderID)}
	av["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: "USER#" + order.UserID}
	av["GSI1SK"] = &types.AttributeValueMemberS{Value: "ORDER#" + order.CreatedAt.Format("2006-01-02T15:04:05Z")}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrOrderExists
		}
		return fmt.Errorf("failed to put order: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrOrderNotFound
	}

	var order domain.Order
	if err := attributevalue.UnmarshalMap(out.Item, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SettleOrder transitions the order from pending to the given outcome as a
// single conditional write. The caller that wins the race gets the settled
// order back; a caller that loses gets the current order and
// ErrAlreadySettled so it can take the idempotent path.
func (r *OrderRepository) SettleOrder(ctx context.Context, orderID string, outcome domain.OrderStatus) (*domain.Order, error) {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET #status = :outcome, updated_at = :now"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":outcome": &types.AttributeValueMemberS{Value: string(outcome)},
			":pending": &types.AttributeValueMemberS{Value: string(domain.OrderStatusPending)},
			":now":     now,
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) > 0 {
				var current domain.Order
				if uerr := attributevalue.UnmarshalMap(ccf.Item, &current); uerr != nil {
					return nil, uerr
				}
				return &current, ErrAlreadySettled
			}
			// condition also fails when the item is missing entirely
			current, gerr := r.GetOrder(ctx, orderID)
			if gerr != nil {
				return nil, gerr
			}
			return current, ErrAlreadySettled
		}
		return nil, fmt.Errorf("failed to settle order: %w", err)
	}

	var settled domain.Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &settled); err != nil {
		return nil, err
	}
	return &settled, nil
}

// RecordRisk overwrites the embedded risk assessment.
func (r *OrderRepository) RecordRisk(ctx context.Context, orderID string, assessment domain.RiskAssessment) error {
	av, err := attributevalue.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal risk assessment: %w", err)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET risk = :risk, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":risk": av,
			":now":  now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record risk: %w", err)
	}
	return nil
}

// RecordDelivery overwrites the embedded delivery record. A delivery that has
// reached `delivered` is immutable; the condition rejects any later write.
func (r *OrderRepository) RecordDelivery(ctx context.Context, orderID string, delivery domain.Delivery) error {
	av, err := attributevalue.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET delivery = :delivery, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND (attribute_not_exists(delivery.#dstatus) OR delivery.#dstatus <> :delivered)"),
		ExpressionAttributeNames: map[string]string{
			"#dstatus": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delivery":  av,
			":delivered": &types.AttributeValueMemberS{Value: string(domain.DeliveryStatusDelivered)},
			":now":       now,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDeliveryFinal
		}
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// CountSettledByUser returns how many orders the user has already paid for,
// excluding the order named by excludeOrderID. The exclusion matters: risk is
// scored after the current order has settled paid, so counting it would make
// every first order look like a repeat purchase. Orders settled by the legacy
// storefront carry status "completed" and count as paid.
func (r *OrderRepository) CountSettledByUser(ctx context.Context, userID, excludeOrderID string) (int, error) {
	count := 0
	var lastKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("GSI1"),
			KeyConditionExpression: aws.String("GSI1PK = :user AND begins_with(GSI1SK, :prefix)"),
			FilterExpression:       aws.String("#status IN (:paid, :completed) AND order_id <> :current"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":user":      &types.AttributeValueMemberS{Value: "USER#" + userID},
				":prefix":    &types.AttributeValueMemberS{Value: "ORDER#"},
				":paid":      &types.AttributeValueMemberS{Value: string(domain.OrderStatusPaid)},
				":completed": &types.AttributeValueMemberS{Value: "completed"},
				":current":   &types.AttributeValueMemberS{Value: excludeOrderID},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count settled orders: %w", err)
		}

		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return count, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderExists    = errors.New("order already exists")
	ErrAlreadySettled = errors.New("order already settled")
	ErrDeliveryFinal  = errors.New("delivery already finalized")
)
