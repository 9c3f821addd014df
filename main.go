package main

import (
	"log"

	"github.com/issb-portal/registration-service/config"
	"github.com/issb-portal/registration-service/internal/handler"
	"github.com/issb-portal/registration-service/internal/middleware"
	"github.com/issb-portal/registration-service/internal/repository"
	"github.com/issb-portal/registration-service/internal/service"
	"github.com/issb-portal/registration-service/pkg/database"
	"github.com/issb-portal/registration-service/pkg/stream"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	publisher, err := stream.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)

	// Services
	eventSvc := service.NewEventService(eventRepo, regRepo, publisher)
	regSvc := service.NewRegistrationService(regRepo, eventRepo, publisher)
	statsSvc := service.NewStatsService(regRepo, eventRepo)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "registration-service"})
	})

	handler.NewEventHandler(eventSvc, statsSvc).RegisterRoutes(e)
	handler.NewRegistrationHandler(regSvc).RegisterRoutes(e)

	log.Printf("Registration Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
