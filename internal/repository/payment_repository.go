package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pinmarket/payment-service/internal/domain"
)

// PaymentRepository holds the append-only payment audit trail. Records live
// under the order partition so support can pull an order and its payments in
// one query.
type PaymentRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewPaymentRepository(client *dynamodb.Client, tableName string) *PaymentRepository {
	return &PaymentRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *PaymentRepository) AppendPayment(ctx context.Context, payment *domain.Payment) error {
	av, err := attributevalue.MarshalMap(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: orderPK(payment.OrderID)}
	av["SK"] = &types.AttributeValueMemberS{Value: "PAYMENT#" + payment.PaymentID}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrPaymentExists
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :order AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":order":  &types.AttributeValueMemberS{Value: orderPK(orderID)},
			":prefix": &types.AttributeValueMemberS{Value: "PAYMENT#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]domain.Payment, 0, len(out.Items))
	for _, item := range out.Items {
		var payment domain.Payment
		if err := attributevalue.UnmarshalMap(item, &payment); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

var ErrPaymentExists = errors.New("payment already recorded")
