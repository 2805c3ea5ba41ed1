package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/usecase"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	fileRepo "github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/file"
	"github.com/dreschagin/limit-monitor/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/limit-monitor/pkg/config"
	"github.com/dreschagin/limit-monitor/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	start := flag.String("start", "", "window start, RFC3339 or YYYY:DDD:HH:MM:SS (default: last completed week)")
	stop := flag.String("stop", "", "window stop, RFC3339 or YYYY:DDD:HH:MM:SS")
	buildChecklist := flag.String("build-checklist", "", "rebuild the checklist from a CSV of alias,key,owner,description")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	// stdout carries the JSON result
	log.SetOutput(os.Stderr)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Engine.Workers + 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	archiveRepository := postgres.NewPostgresArchiveRepository(db)
	checklistRepository := fileRepo.NewChecklistRepository(cfg.Engine.ChecklistPath)

	if *buildChecklist != "" {
		rows, err := fileRepo.ReadChecklistCSVFile(*buildChecklist)
		if err != nil {
			log.Error("Failed to read checklist source", err)
			os.Exit(1)
		}

		result, err := usecase.NewBuildChecklistUseCase(archiveRepository, checklistRepository, log).Execute(ctx, rows)
		if err != nil {
			log.Error("Failed to build checklist", err)
			os.Exit(1)
		}
		printJSON(result)
		return
	}

	window, err := resolveWindow(*start, *stop, cfg.Runner.WeekStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window: %v\n", err)
		os.Exit(2)
	}

	engineFile, err := config.LoadEngineFile(cfg.Engine.ConfigPath)
	if err != nil {
		log.Error("Failed to load engine config", err)
		os.Exit(1)
	}
	validity, err := engineFile.ValidityTable()
	if err != nil {
		log.Error("Invalid validity intervals", err)
		os.Exit(1)
	}
	cadence := valueobject.Cadence(cfg.Engine.Cadence)
	if err := cadence.Validate(); err != nil {
		log.Error("Invalid archive cadence", err)
		os.Exit(1)
	}

	limitRepository := postgres.NewPostgresLimitRepository(db)
	descriptionResolver := service.NewDescriptionResolver(archiveRepository)

	buildViolationMapUC := usecase.NewBuildViolationMapUseCase(
		limitRepository,
		service.NewSplitWindowResolver(archiveRepository, limitRepository, service.NewLimitEvaluator(), validity, cadence),
		service.NewViolationAggregator(),
		descriptionResolver,
		nil,
		usecase.BuildViolationMapConfig{
			Workers:  cfg.Engine.Workers,
			Denylist: engineFile.DenySet(),
		},
		log,
	)

	generateReportUC := usecase.NewGenerateReportUseCase(
		checklistRepository,
		buildViolationMapUC,
		service.NewLimitChangeReporter(limitRepository, descriptionResolver),
		archiveRepository,
		usecase.ReportSinks{},
		nil,
		usecase.GenerateReportConfig{PowerMSID: cfg.Engine.PowerMSID},
		log,
	)

	report, err := generateReportUC.Execute(ctx, window)
	if err != nil {
		log.Error("Report generation failed", err)
		os.Exit(1)
	}

	printJSON(report)
}

func resolveWindow(start, stop string, weekStart time.Weekday) (valueobject.TimeRange, error) {
	if start == "" && stop == "" {
		return valueobject.LastCompletedWeek(time.Now(), weekStart), nil
	}
	if start == "" || stop == "" {
		return valueobject.TimeRange{}, fmt.Errorf("-start and -stop must be given together")
	}

	from, err := valueobject.ParseMissionTime(start)
	if err != nil {
		return valueobject.TimeRange{}, err
	}
	to, err := valueobject.ParseMissionTime(stop)
	if err != nil {
		return valueobject.TimeRange{}, err
	}

	return valueobject.NewTimeRange(from, to)
}

func printJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
}
