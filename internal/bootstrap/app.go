package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"clause-extractor/internal/ai"
	"clause-extractor/internal/config"
	"clause-extractor/internal/model"
	mysqlClient "clause-extractor/internal/platform/mysql"
	"clause-extractor/internal/pkg/logger"
)

type App struct {
	Config    *config.Config
	MySQL     *gorm.DB
	Providers *ai.Registry

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Extraction{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	providerTimeout := time.Duration(cfg.Limits.ProviderTimeoutMS) * time.Millisecond
	providers := ai.NewRegistry()
	providers.Register(ai.ProviderOpenAI, ai.NewOpenAIClient(cfg.OpenAI, providerTimeout))
	providers.Register(ai.ProviderGemini, ai.NewGeminiClient(cfg.Gemini))

	slog.Info("application bootstrapped",
		"app", cfg.App.Name,
		"env", cfg.App.Env,
		"openai_configured", cfg.OpenAI.APIKey != "",
		"gemini_configured", cfg.Gemini.APIKey != "",
	)

	return &App{
		Config:    cfg,
		MySQL:     mysqlDB,
		Providers: providers,
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() error {
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
