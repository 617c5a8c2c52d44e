package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jmazzahacks/api-gatekeeper/apis"
	"github.com/jmazzahacks/api-gatekeeper/authorize"
	"github.com/jmazzahacks/api-gatekeeper/clock"
	"github.com/jmazzahacks/api-gatekeeper/common"
	"github.com/jmazzahacks/api-gatekeeper/storage"
)

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"required,oneof=debug info warn error"`
	ConfigFile string `validate:"file"`
	DBPassword string
	Hostname   string
}

var cmdArgs cliArgs

var logTags log.Fields

// @title api-gatekeeper
// @version v0.1.0
// @description Forward-auth authorization decision engine for reverse proxy subrequests

// @host localhost:3001
// @BasePath /
// @query.collection.format multi
func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.WithError(err).Fatal("Unable to read hostname")
	}
	cmdArgs.Hostname = hostname
	logTags = log.Fields{
		"module":    "main",
		"component": "main",
		"instance":  hostname,
	}

	common.InstallDefaultGatekeeperServerConfigValues()

	app := &cli.App{
		Version:     "v0.1.0",
		Usage:       "application entrypoint",
		Description: "Forward-auth authorization decision engine for reverse proxy subrequests",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				DefaultText: "false",
				Destination: &cmdArgs.JSONLog,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "warn",
				DefaultText: "warn",
				Destination: &cmdArgs.LogLevel,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "Application config file",
				Aliases:     []string{"c"},
				EnvVars:     []string{"CONFIG_FILE"},
				Destination: &cmdArgs.ConfigFile,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "db-user-password",
				Usage:       "Database user password",
				Aliases:     []string{"p"},
				EnvVars:     []string{"DB_CONNECT_USER_PASSWORD"},
				Value:       "",
				DefaultText: "",
				Destination: &cmdArgs.DBPassword,
				Required:    false,
			},
		},
		Action: mainApplication,
	}

	err = app.Run(os.Args)
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

func mainApplication(c *cli.Context) error {
	validate := validator.New()
	if err := validate.Struct(&cmdArgs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid CMD args")
		return err
	}

	// Setup logging
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch cmdArgs.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}

	// Process the config file
	var appCfg common.GatekeeperServerConfig
	viper.SetConfigFile(cmdArgs.ConfigFile)
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).WithFields(logTags).
			Errorf("Failed to read config file %s", cmdArgs.ConfigFile)
		return err
	}
	if err := viper.Unmarshal(&appCfg); err != nil {
		log.WithError(err).WithFields(logTags).
			Errorf("Failed to parse config file %s", cmdArgs.ConfigFile)
		return err
	}
	// Verify the application config is correct
	if err := appCfg.Validate(); err != nil {
		log.WithError(err).WithFields(logTags).
			Errorf("Application config %s is not valid", cmdArgs.ConfigFile)
		return err
	}

	// Connect to the database
	dbDSN := fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=disable",
		appCfg.Database.Host, appCfg.Database.User, appCfg.Database.DB,
	)
	if cmdArgs.DBPassword != "" {
		dbDSN = fmt.Sprintf(
			"host=%s user=%s dbname=%s password=%s sslmode=disable",
			appCfg.Database.Host, appCfg.Database.User, appCfg.Database.DB, cmdArgs.DBPassword,
		)
	}
	baseDBClient, err := gorm.Open(postgres.Open(dbDSN))
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Failed to create base DB client")
		return err
	}
	repo, err := storage.NewGormRepository(baseDBClient)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Failed to define storage repository")
		return err
	}

	// Seed routes, clients, and permissions from config
	if err := storage.Seed(context.Background(), baseDBClient, appCfg.Seed); err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Failed to seed storage repository")
		return err
	}

	core := authorize.New(repo, clock.New(), authorize.Config{
		SignatureTolerance: time.Duration(appCfg.Authorization.Signature.ToleranceSecs) * time.Second,
	})

	// ------------------------------------------------------------------------------------
	// Define application servers based on application configuration

	wg := sync.WaitGroup{}
	defer wg.Wait()
	apiServers := map[string]*http.Server{}

	defer func() {
		for svrInstance, svr := range apiServers {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()
			if err := svr.Shutdown(ctx); err != nil {
				log.WithError(err).Errorf("Failure during HTTP Server %s shutdown", svrInstance)
			}
		}
	}()

	if appCfg.Authorization.Enabled {
		svr, err := apis.BuildAuthorizationServer(
			appCfg.Authorization.APIServerConfig,
			core,
			appCfg.Authorization.RequestParamLocation,
			repo,
			nil,
		)
		if err != nil {
			log.WithError(err).WithFields(logTags).
				Errorf("Unable to define Authorization API HTTP Server")
			return err
		}
		apiServers["Authorization"] = svr
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Authorization API HTTP Server Failure")
			}
		}()
	}

	// ------------------------------------------------------------------------------------
	// Wait for termination

	cc := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(cc, os.Interrupt)
	<-cc

	return nil
}
