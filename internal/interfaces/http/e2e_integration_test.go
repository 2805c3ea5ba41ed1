//go:build integration
// +build integration

package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/application/usecase"
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	wsInfra "github.com/dreschagin/limit-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/limit-monitor/internal/infrastructure/storage/s3"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/limit-monitor/pkg/config"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

type integrationEnv struct {
	postgresDSN     string
	s3Endpoint      string
	s3Region        string
	s3AccessKey     string
	s3SecretKey     string
	s3Bucket        string
	s3UsePathStyle  bool
	dynamoEndpoint  string
	dynamoRegion    string
	dynamoAccessKey string
	dynamoSecretKey string
	dynamoTable     string
}

func loadIntegrationEnv() integrationEnv {
	return integrationEnv{
		postgresDSN:     getenv("INTEGRATION_POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=limitmon sslmode=disable"),
		s3Endpoint:      getenv("INTEGRATION_S3_ENDPOINT", "http://localhost:9000"),
		s3Region:        getenv("INTEGRATION_S3_REGION", "us-east-1"),
		s3AccessKey:     getenv("INTEGRATION_S3_ACCESS_KEY", "minioadmin"),
		s3SecretKey:     getenv("INTEGRATION_S3_SECRET_KEY", "minioadmin"),
		s3Bucket:        getenv("INTEGRATION_S3_BUCKET", "limitmon-reports-e2e"),
		s3UsePathStyle:  true,
		dynamoEndpoint:  getenv("INTEGRATION_DYNAMO_ENDPOINT", "http://localhost:8000"),
		dynamoRegion:    getenv("INTEGRATION_DYNAMO_REGION", "us-east-1"),
		dynamoAccessKey: getenv("INTEGRATION_DYNAMO_ACCESS_KEY", "dynamo"),
		dynamoSecretKey: getenv("INTEGRATION_DYNAMO_SECRET_KEY", "dynamo"),
		dynamoTable:     getenv("INTEGRATION_DYNAMO_TABLE", "limitmon_report_index_e2e"),
	}
}

func TestE2EIntegrationReportRoundTrip(t *testing.T) {
	env := loadIntegrationEnv()
	ctx := context.Background()

	db := connectPostgres(t, env.postgresDSN)
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	seedIntegration(t, db)

	ensureS3Bucket(t, ctx, env)
	ensureDynamoTable(t, ctx, env)

	server := integrationServer(t, db, env)
	client := server.Client()
	headers := map[string]string{"Authorization": "Bearer " + testToken}

	resp := doRequest(t, client, http.MethodPost, server.URL+"/api/v1/reports"+reportQuery, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for report generation, got %d", resp.StatusCode)
	}
	var generated dto.ReportDTO
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	resp.Body.Close()

	if _, ok := generated.Violations["1pdeaat"]["caution_high"]; !ok {
		t.Fatalf("expected caution_high violation for 1pdeaat, got %+v", generated.Violations)
	}
	if len(generated.LimitChanges) != 1 {
		t.Fatalf("expected one limit change, got %d", len(generated.LimitChanges))
	}

	// GET reads the artifact back through the dynamodb index and S3
	getResp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/reports"+reportQuery, headers)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for report fetch, got %d", getResp.StatusCode)
	}
	var fetched dto.ReportDTO
	if err := json.NewDecoder(getResp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode fetched report: %v", err)
	}
	getResp.Body.Close()
	if fetched.ID != generated.ID {
		t.Fatalf("expected stored report %s, got %s", generated.ID, fetched.ID)
	}

	listResp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/reports/index?limit=10", headers)
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for report index, got %d", listResp.StatusCode)
	}
	var listed usecase.ListReportsResult
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode report index: %v", err)
	}
	listResp.Body.Close()

	found := false
	for _, item := range listed.Items {
		if item.DayRange == generated.DayRange {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in report index", generated.DayRange)
	}

	readyResp := doRequest(t, client, http.MethodGet, server.URL+"/readyz", nil)
	if readyResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for readyz, got %d", readyResp.StatusCode)
	}
	readyResp.Body.Close()
}

func integrationServer(t *testing.T, db *sql.DB, env integrationEnv) *httptest.Server {
	t.Helper()
	log := logger.New("error")

	archive := postgres.NewPostgresArchiveRepository(db)
	limits := postgres.NewPostgresLimitRepository(db)

	ghost, _ := entity.NewMeasurement("ghost", "", "thermal", "", valueobject.NumericLimit)
	tank, _ := entity.NewMeasurement("1pdeaat", "", "thermal", "", valueobject.NumericLimit)
	checklists := &staticChecklists{checklist: entity.Checklist{tank, ghost}}

	storage := buildS3Storage(t, env)
	index := buildDynamoRepo(t, env)
	hub := wsInfra.NewHub(log)
	m := metrics.New(prometheus.NewRegistry(), "limitmon")

	descriptions := service.NewDescriptionResolver(archive)
	reporter := service.NewLimitChangeReporter(limits, descriptions)
	resolver := service.NewSplitWindowResolver(archive, limits, service.NewLimitEvaluator(), nil, valueobject.FullResolution)
	buildMap := usecase.NewBuildViolationMapUseCase(
		limits, resolver, service.NewViolationAggregator(), descriptions, m,
		usecase.BuildViolationMapConfig{Workers: 2}, log,
	)
	generate := usecase.NewGenerateReportUseCase(
		checklists, buildMap, reporter, archive,
		usecase.ReportSinks{Storage: storage, Index: index, Notifier: hub},
		m, usecase.GenerateReportConfig{KeyPrefix: "e2e"}, log,
	)
	get := usecase.NewGetReportCachedUseCase(nil, index, storage, nil, log)
	list := usecase.NewListReportsUseCase(index, usecase.ListReportsConfig{}, log)
	changes := usecase.NewFindLimitChangesUseCase(reporter, checklists, nil, 0, log)

	authConfig := middleware.AuthConfig{Enabled: true, BearerToken: testToken}
	router := NewRouter(
		handler.NewHealthHandler(map[string]handler.ReadinessCheck{"limits": limits.Ping}, log),
		handler.NewReportAPIHandler(generate, get, list, 0, log),
		handler.NewLimitChangeAPIHandler(changes, 0, log),
		handler.NewWebSocketHandler(hub, []string{"http://localhost"}, authConfig, log),
		nil,
		m,
		nil,
		config.SecurityConfig{AuthEnabled: true, AuthToken: testToken},
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server
}

func connectPostgres(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	return db
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	path := filepath.Join("..", "..", "..", "migrations", "0001_init.sql")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration %s: %v", path, err)
	}
	if _, err := db.Exec(string(raw)); err != nil {
		t.Fatalf("apply migration %s: %v", path, err)
	}
}

func seedIntegration(t *testing.T, db *sql.DB) {
	t.Helper()
	statements := []string{
		"DELETE FROM archive_samples",
		"DELETE FROM archive_catalog",
		"DELETE FROM limits",
		"INSERT INTO archive_catalog (msid, technical_name, unit) VALUES ('1pdeaat', 'PROPELLANT TANK TEMP', 'DEGF')",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}

	for i, value := range []float64{10, 25, 27, 10} {
		_, err := db.Exec(
			"INSERT INTO archive_samples (msid, sampled_at, value) VALUES ($1, $2, $3)",
			"1pdeaat", base.Add(time.Duration(i)*time.Hour), value,
		)
		if err != nil {
			t.Fatalf("seed samples: %v", err)
		}
	}

	revisions := []struct {
		version     int64
		effective   time.Time
		cautionHigh float64
	}{
		{1, base.Add(-24 * time.Hour), 20},
		{2, base.Add(5 * time.Hour), 30},
	}
	for _, rev := range revisions {
		_, err := db.Exec(
			`INSERT INTO limits (msid, setkey, modversion, effective_at, caution_high, mlmenable)
			 VALUES ($1, $2, $3, $4, $5, true)`,
			"1pdeaat", entity.DefaultSetID, rev.version, rev.effective, rev.cautionHigh,
		)
		if err != nil {
			t.Fatalf("seed limits: %v", err)
		}
	}
}

func buildS3Storage(t *testing.T, env integrationEnv) *s3storage.ReportStorage {
	t.Helper()
	store, err := s3storage.NewReportStorage(context.Background(), s3storage.Config{
		Bucket:          env.s3Bucket,
		Region:          env.s3Region,
		Endpoint:        env.s3Endpoint,
		AccessKeyID:     env.s3AccessKey,
		SecretAccessKey: env.s3SecretKey,
		UsePathStyle:    env.s3UsePathStyle,
		URLMode:         s3storage.URLModePresigned,
		PresignedTTL:    2 * time.Minute,
	})
	if err != nil {
		t.Fatalf("init s3 storage: %v", err)
	}
	return store
}

func buildDynamoRepo(t *testing.T, env integrationEnv) *dynamodbRepo.ReportIndexRepository {
	t.Helper()
	repo, err := dynamodbRepo.NewReportIndexRepository(context.Background(), dynamodbRepo.Config{
		TableName:       env.dynamoTable,
		Region:          env.dynamoRegion,
		Endpoint:        env.dynamoEndpoint,
		AccessKeyID:     env.dynamoAccessKey,
		SecretAccessKey: env.dynamoSecretKey,
		StrongReads:     true,
	})
	if err != nil {
		t.Fatalf("init dynamodb repo: %v", err)
	}
	return repo
}

func ensureS3Bucket(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.s3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.s3AccessKey,
			env.s3SecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.BaseEndpoint = &env.s3Endpoint
		options.UsePathStyle = env.s3UsePathStyle
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: &env.s3Bucket,
	})
	if err != nil && !isBucketExistsError(err) {
		t.Fatalf("create bucket: %v", err)
	}
}

func isBucketExistsError(err error) bool {
	var alreadyOwned *s3.BucketAlreadyOwnedByYou
	var alreadyExists *s3.BucketAlreadyExists
	if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
		return true
	}
	return strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") || strings.Contains(err.Error(), "BucketAlreadyExists")
}

func ensureDynamoTable(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.dynamoRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.dynamoAccessKey,
			env.dynamoSecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load dynamo config: %v", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		options.BaseEndpoint = &env.dynamoEndpoint
	})

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &env.dynamoTable,
	})
	if err == nil {
		return
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &env.dynamoTable,
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: stringPtr("PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: stringPtr("PK"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: stringPtr("SK"), KeyType: ddbtypes.KeyTypeRange},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []ddbtypes.GlobalSecondaryIndex{
			{
				IndexName: stringPtr("GSI1"),
				KeySchema: []ddbtypes.KeySchemaElement{
					{AttributeName: stringPtr("GSI1PK"), KeyType: ddbtypes.KeyTypeHash},
					{AttributeName: stringPtr("GSI1SK"), KeyType: ddbtypes.KeyTypeRange},
				},
				Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		t.Fatalf("create dynamodb table: %v", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: &env.dynamoTable}, 30*time.Second); err != nil {
		t.Fatalf("wait for table: %v", err)
	}
}

func doRequest(t *testing.T, client *http.Client, method, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func stringPtr(value string) *string {
	return &value
}
