package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port             string `envconfig:"PORT" default:"8080"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"eu-central-1"`
	TableName        string `envconfig:"TABLE_NAME" default:"storefront"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local endpoint
	KafkaBrokers     string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	PaymentTopic     string `envconfig:"PAYMENT_TOPIC" default:"payment-events"`
	ShopierSecret    string `envconfig:"SHOPIER_API_SECRET" default:""`
	RiskThreshold    int    `envconfig:"RISK_FLAG_THRESHOLD" default:"50"`
	SuccessPath      string `envconfig:"PAYMENT_SUCCESS_PATH" default:"/payment/success"`
	FailedPath       string `envconfig:"PAYMENT_FAILED_PATH" default:"/payment/failed"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
