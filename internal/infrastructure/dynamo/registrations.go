package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fcl-miniapp/internal/domain"
)

const (
	attrRegistrationID = "registration_id"
	attrCounterName    = "name"
	registrationSeq    = "registrations"
)

type dynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// registrationItem is the stored shape of a ledger entry.
type registrationItem struct {
	RegistrationID int64          `dynamodbav:"registration_id"`
	UserID         int64          `dynamodbav:"tg_user_id"`
	Username       *string        `dynamodbav:"tg_username,omitempty"`
	FirstName      *string        `dynamodbav:"tg_first_name,omitempty"`
	LastName       *string        `dynamodbav:"tg_last_name,omitempty"`
	Discipline     string         `dynamodbav:"discipline"`
	Mode           string         `dynamodbav:"mode"`
	Payload        map[string]any `dynamodbav:"payload"`
	CreatedAt      time.Time      `dynamodbav:"created_at"`
	SubmittedAt    time.Time      `dynamodbav:"submitted_at"`
	SourceInitData string         `dynamodbav:"source_init_data,omitempty"`
}

type counterItem struct {
	Seq int64 `dynamodbav:"seq"`
}

// RegistrationRepo is an append-only DynamoDB ledger. Ids come from an atomic
// counter item; aggregates are computed from a full table scan.
type RegistrationRepo struct {
	client        dynamoAPI
	tableName     string
	countersTable string
}

func NewRegistrationRepo(client dynamoAPI, tableName, countersTable string) *RegistrationRepo {
	return &RegistrationRepo{client: client, tableName: tableName, countersTable: countersTable}
}

func (r *RegistrationRepo) nextID(ctx context.Context) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.countersTable),
		Key:              strKey(attrCounterName, registrationSeq),
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("allocate registration id: %w", err)
	}
	var c counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return 0, fmt.Errorf("decode registration id: %w", err)
	}
	return c.Seq, nil
}

// Append allocates an id and writes reg. The write is conditional so an
// existing entry is never overwritten.
func (r *RegistrationRepo) Append(ctx context.Context, reg *domain.Registration) (int64, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return 0, err
	}
	payload := reg.Data
	if payload == nil {
		payload = map[string]any{}
	}
	item, err := attributevalue.MarshalMap(registrationItem{
		RegistrationID: id,
		UserID:         reg.UserID,
		Username:       reg.Username,
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		Discipline:     reg.Discipline.String(),
		Mode:           reg.Mode.String(),
		Payload:        payload,
		CreatedAt:      reg.CreatedAt.UTC(),
		SubmittedAt:    reg.SubmittedAt.UTC(),
		SourceInitData: reg.SourceInitData,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal registration: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + attrRegistrationID + ")"),
	})
	if err != nil {
		return 0, fmt.Errorf("put registration %d: %w", id, err)
	}
	return id, nil
}

func (r *RegistrationRepo) scanAll(ctx context.Context) ([]registrationItem, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	var items []registrationItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan registrations: %w", err)
		}
		var batch []registrationItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal registrations: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (r *RegistrationRepo) Count(ctx context.Context) (int, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *RegistrationRepo) CountDistinctUsers(ctx context.Context) (int, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return 0, err
	}
	return distinctUsers(items), nil
}

func (r *RegistrationRepo) GroupCount(ctx context.Context, by domain.GroupBy) ([]domain.GroupCount, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return groupCounts(items, by), nil
}

func (r *RegistrationRepo) Recent(ctx context.Context, limit int) ([]domain.RegistrationSummary, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return recent(items, limit), nil
}

// Snapshot builds every aggregate from a single scan, so one stats request
// costs one pass over the table and its figures agree with each other.
func (r *RegistrationRepo) Snapshot(ctx context.Context, recentLimit int) (*domain.StatsSnapshot, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.StatsSnapshot{
		Total:         len(items),
		DistinctUsers: distinctUsers(items),
		ByDiscipline:  groupCounts(items, domain.GroupByDiscipline),
		ByMode:        groupCounts(items, domain.GroupByMode),
		Recent:        recent(items, recentLimit),
	}, nil
}

func distinctUsers(items []registrationItem) int {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		seen[it.UserID] = struct{}{}
	}
	return len(seen)
}

// groupCounts orders by count descending, then key ascending.
func groupCounts(items []registrationItem, by domain.GroupBy) []domain.GroupCount {
	counts := map[string]int{}
	for _, it := range items {
		key := it.Discipline
		if by == domain.GroupByMode {
			key = it.Mode
		}
		counts[key]++
	}
	out := make([]domain.GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// recent orders by submission time descending, then id descending.
func recent(items []registrationItem, limit int) []domain.RegistrationSummary {
	sorted := append([]registrationItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].SubmittedAt.After(sorted[j].SubmittedAt)
		}
		return sorted[i].RegistrationID > sorted[j].RegistrationID
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]domain.RegistrationSummary, len(sorted))
	for i, it := range sorted {
		out[i] = domain.RegistrationSummary{
			ID:          it.RegistrationID,
			UserID:      it.UserID,
			Username:    it.Username,
			Discipline:  it.Discipline,
			Mode:        it.Mode,
			SubmittedAt: it.SubmittedAt,
		}
	}
	return out
}
