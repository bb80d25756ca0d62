// Package dynamo reads lead event history from a DynamoDB table.
//
// Items are keyed PK = "ORG#<org>#LEAD#<lead>", SK = "<RFC3339 time>#<seq>",
// so a key-condition query returns a lead's audit log in time order.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// HistoryItem is the stored shape of one audit entry.
type HistoryItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Event     string `dynamodbav:"Event"`
	EmailType string `dynamodbav:"EmailType"`
	Timestamp string `dynamodbav:"Timestamp"`
	Reason    string `dynamodbav:"Reason,omitempty"`
}

// PartitionKey returns the partition key of a lead's history.
func PartitionKey(orgID, leadID string) string {
	return fmt.Sprintf("ORG#%s#LEAD#%s", orgID, leadID)
}

// HistoryRepo implements scheduling.HistoryRepository against DynamoDB.
type HistoryRepo struct {
	client dynamodb.QueryAPIClient
	table  string
}

// NewHistoryRepo creates a DynamoDB-backed history repository.
func NewHistoryRepo(client dynamodb.QueryAPIClient, table string) *HistoryRepo {
	return &HistoryRepo{client: client, table: table}
}

func (r *HistoryRepo) ListEventHistory(ctx context.Context, orgID, leadID string) ([]domain.EventHistoryEntry, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: PartitionKey(orgID, leadID)},
		},
		ScanIndexForward: aws.Bool(true),
	})

	var out []domain.EventHistoryEntry
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query event history: %w", err)
		}
		var items []HistoryItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal event history: %w", err)
		}
		for _, it := range items {
			ts, err := time.Parse(time.RFC3339Nano, it.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("parse history timestamp %q: %w", it.Timestamp, err)
			}
			out = append(out, domain.EventHistoryEntry{
				Event:     it.Event,
				EmailType: it.EmailType,
				Timestamp: ts,
				Details:   domain.EventDetails{Reason: it.Reason},
			})
		}
	}
	return out, nil
}
