package main

import (
	"context"

	"edushare/internal/config"
	"edushare/internal/database"
	"edushare/internal/features/blob"
	"edushare/internal/features/resource"
	"edushare/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed inserts a handful of demo resources through the real upload pipeline
func Seed(
	lc fx.Lifecycle,
	resourceService resource.ResourceService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Seeding demo resources...")

				owner := primitive.NewObjectID().Hex()
				demos := []resource.UploadInput{
					{
						Title:       "Calculus Notes",
						Description: "Limits, derivatives and integrals summary",
						Subject:     "Mathematics",
						Year:        "2024",
						Semester:    "1",
						ExamType:    "Final",
						Category:    "Notes",
						Tags:        []string{"calculus", "math"},
						Data:        []byte("%PDF-1.4 demo calculus notes"),
						ContentType: "application/pdf",
						Filename:    "calculus-notes.pdf",
					},
					{
						Title:       "Physics Lab Manual",
						Subject:     "Physics",
						Year:        "2024",
						Category:    "Lab",
						Tags:        []string{"physics", "lab"},
						Data:        []byte("%PDF-1.4 demo lab manual"),
						ContentType: "application/pdf",
						Filename:    "physics-lab.pdf",
					},
					{
						Title:       "Data Structures Cheat Sheet",
						Subject:     "Computer Science",
						Category:    "Reference",
						Tags:        []string{"dsa", "cheatsheet"},
						Data:        []byte("arrays, lists, trees, graphs"),
						ContentType: "text/plain",
						Filename:    "dsa-cheatsheet.txt",
					},
				}

				for _, in := range demos {
					res, err := resourceService.Upload(context.Background(), owner, in)
					if err != nil {
						logger.Error("Failed to seed resource",
							zap.String("title", in.Title),
							zap.Error(err))
						continue
					}
					logger.Info("Seeded resource",
						zap.String("id", res.ID.Hex()),
						zap.String("title", res.Title))
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			blob.NewStore,
			resource.NewResourceRepository,
			resource.NewSettingsRepository,
			resource.NewResourceService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
