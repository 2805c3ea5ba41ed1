package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/limit-monitor/internal/application/port"
)

const (
	defaultListLimit = 24
	maxListLimit     = 100

	reportIndexGSI1 = "GSI1"
	// All reports share one GSI partition; the index holds one item per week.
	reportsPartition = "REPORTS"

	attrPK             = "PK"
	attrSK             = "SK"
	attrGSI1PK         = "GSI1PK"
	attrGSI1SK         = "GSI1SK"
	attrReportID       = "report_id"
	attrDayRange       = "day_range"
	attrWindowStart    = "window_start"
	attrWindowEnd      = "window_end"
	attrS3Key          = "s3_key"
	attrURL            = "url"
	attrViolationCount = "violation_count"
	attrMissingCount   = "missing_count"
	attrFailedCount    = "failed_count"
	attrGeneratedAt    = "generated_at"
	attrExpiresAt      = "expires_at"

	metaSortKey = "META"
)

var dayRangePattern = regexp.MustCompile(`^[0-9]{7}-[0-9]{7}$`)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// ReportIndexRepository stores one metadata item per generated report.
type ReportIndexRepository struct {
	client      *dynamodb.Client
	tableName   string
	strongReads bool
}

type cursorPayload struct {
	FromMS int64                  `json:"from_ms,omitempty"`
	ToMS   int64                  `json:"to_ms,omitempty"`
	Key    map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewReportIndexRepository(ctx context.Context, cfg Config) (*ReportIndexRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return &ReportIndexRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
	}, nil
}

// Put replaces the index item for the report's day range.
func (r *ReportIndexRepository) Put(ctx context.Context, entry port.ReportIndexEntry) error {
	item, err := toItem(entry)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put failed: %w", err)
	}
	return nil
}

// Get returns the index item for dayRange or port.ErrReportNotIndexed.
func (r *ReportIndexRepository) Get(ctx context.Context, dayRange string) (port.ReportIndexEntry, error) {
	dayRange = strings.TrimSpace(dayRange)
	if !dayRangePattern.MatchString(dayRange) {
		return port.ReportIndexEntry{}, fmt.Errorf("invalid day_range")
	}

	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: buildPK(dayRange)},
			attrSK: &types.AttributeValueMemberS{Value: metaSortKey},
		},
		ConsistentRead: boolPointer(r.strongReads),
	})
	if err != nil {
		return port.ReportIndexEntry{}, fmt.Errorf("dynamodb get failed: %w", err)
	}
	if len(output.Item) == 0 {
		return port.ReportIndexEntry{}, port.ErrReportNotIndexed
	}

	entry, err := fromItem(output.Item)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	if !entry.ExpiresAt.IsZero() && entry.ExpiresAt.Before(time.Now()) {
		// TTL deletion lags behind expiry by up to a couple of days.
		return port.ReportIndexEntry{}, port.ErrReportNotIndexed
	}
	return entry, nil
}

// List returns reports newest first, optionally filtered by window start.
func (r *ReportIndexRepository) List(ctx context.Context, query port.ReportIndexQuery) (port.ReportIndexPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.ReportIndexPage{}, err
	}

	keyCondition := "#gsi1pk = :pk"
	input := &dynamodb.QueryInput{
		TableName:        &r.tableName,
		IndexName:        stringPointer(reportIndexGSI1),
		Limit:            int32Pointer(int32(limit)),
		ScanIndexForward: boolPointer(false),
		ExpressionAttributeNames: map[string]string{
			"#gsi1pk": attrGSI1PK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: reportsPartition},
		},
	}
	if hasRange {
		input.ExpressionAttributeNames["#gsi1sk"] = attrGSI1SK
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
		keyCondition += " AND #gsi1sk BETWEEN :from AND :to"
	}
	input.KeyConditionExpression = &keyCondition

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, fromMS, toMS)
		if err != nil {
			return port.ReportIndexPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.ReportIndexPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]port.ReportIndexEntry, 0, len(output.Items))
	for _, raw := range output.Items {
		item, err := fromItem(raw)
		if err != nil {
			return port.ReportIndexPage{}, err
		}
		items = append(items, item)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, fromMS, toMS)
		if err != nil {
			return port.ReportIndexPage{}, err
		}
	}

	return port.ReportIndexPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func toItem(entry port.ReportIndexEntry) (map[string]types.AttributeValue, error) {
	dayRange := strings.TrimSpace(entry.DayRange)
	if !dayRangePattern.MatchString(dayRange) {
		return nil, fmt.Errorf("invalid day_range")
	}
	if strings.TrimSpace(entry.ReportID) == "" {
		return nil, fmt.Errorf("report_id is required")
	}
	if strings.TrimSpace(entry.S3Key) == "" {
		return nil, fmt.Errorf("s3_key is required")
	}
	if entry.WindowStart.IsZero() || entry.WindowEnd.IsZero() {
		return nil, fmt.Errorf("report window is required")
	}

	generatedAt := entry.GeneratedAt.UTC()
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	startMS := entry.WindowStart.UTC().UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:             &types.AttributeValueMemberS{Value: buildPK(dayRange)},
		attrSK:             &types.AttributeValueMemberS{Value: metaSortKey},
		attrGSI1PK:         &types.AttributeValueMemberS{Value: reportsPartition},
		attrGSI1SK:         &types.AttributeValueMemberS{Value: buildGSI1SK(startMS, dayRange)},
		attrReportID:       &types.AttributeValueMemberS{Value: entry.ReportID},
		attrDayRange:       &types.AttributeValueMemberS{Value: dayRange},
		attrS3Key:          &types.AttributeValueMemberS{Value: entry.S3Key},
		attrWindowStart:    numberAttr(startMS),
		attrWindowEnd:      numberAttr(entry.WindowEnd.UTC().UnixMilli()),
		attrViolationCount: numberAttr(int64(entry.ViolationCount)),
		attrMissingCount:   numberAttr(int64(entry.MissingCount)),
		attrFailedCount:    numberAttr(int64(entry.FailedCount)),
		attrGeneratedAt:    numberAttr(generatedAt.UnixMilli()),
	}

	if url := strings.TrimSpace(entry.URL); url != "" {
		item[attrURL] = &types.AttributeValueMemberS{Value: url}
	}
	if !entry.ExpiresAt.IsZero() {
		item[attrExpiresAt] = numberAttr(entry.ExpiresAt.UTC().Unix())
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.ReportIndexEntry, error) {
	reportID, err := attrString(item, attrReportID)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	dayRange, err := attrString(item, attrDayRange)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	s3Key, err := attrString(item, attrS3Key)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	startMS, err := attrInt64(item, attrWindowStart)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	endMS, err := attrInt64(item, attrWindowEnd)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}
	generatedMS, err := attrInt64(item, attrGeneratedAt)
	if err != nil {
		return port.ReportIndexEntry{}, err
	}

	entry := port.ReportIndexEntry{
		ReportID:       reportID,
		DayRange:       dayRange,
		WindowStart:    time.UnixMilli(startMS).UTC(),
		WindowEnd:      time.UnixMilli(endMS).UTC(),
		S3Key:          s3Key,
		URL:            optionalString(item, attrURL),
		ViolationCount: int(optionalInt64(item, attrViolationCount)),
		MissingCount:   int(optionalInt64(item, attrMissingCount)),
		FailedCount:    int(optionalInt64(item, attrFailedCount)),
		GeneratedAt:    time.UnixMilli(generatedMS).UTC(),
	}

	if expiresAtSeconds := optionalInt64(item, attrExpiresAt); expiresAtSeconds > 0 {
		entry.ExpiresAt = time.Unix(expiresAtSeconds, 0).UTC()
	}

	return entry, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildPK(dayRange string) string {
	return "REPORT#" + dayRange
}

func buildGSI1SK(startMS int64, dayRange string) string {
	return fmt.Sprintf("TS#%013d#RANGE#%s", startMS, dayRange)
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func encodeCursor(key map[string]types.AttributeValue, fromMS, toMS int64) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	serialized, err := json.Marshal(cursorPayload{FromMS: fromMS, ToMS: toMS, Key: values})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

var errInvalidCursor = errors.New("invalid cursor")

func decodeCursor(cursor string, fromMS, toMS int64) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errInvalidCursor
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errInvalidCursor
	}

	if payload.FromMS != fromMS || payload.ToMS != toMS {
		return nil, fmt.Errorf("cursor does not match query filters")
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		if value.S != "" {
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
			continue
		}
		if value.N != "" {
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
			continue
		}
		return nil, errInvalidCursor
	}

	return key, nil
}

func numberAttr(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	raw, ok := item[name]
	if !ok {
		return ""
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	raw, ok := item[name]
	if !ok {
		return 0
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}

func stringPointer(v string) *string {
	return &v
}
