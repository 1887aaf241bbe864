package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/krishotte/env-monitor/internal/collector"
	"github.com/krishotte/env-monitor/internal/config"
	"github.com/krishotte/env-monitor/internal/db"
	"github.com/krishotte/env-monitor/internal/httpapi"
	"github.com/krishotte/env-monitor/internal/influx"
	"github.com/krishotte/env-monitor/internal/migrate"
	"github.com/krishotte/env-monitor/internal/mqtt"
)

func RunCollector(ctx context.Context, cfg config.Collector) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"tokenSet", cfg.Token != "",
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"logSQL", cfg.LogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"influxURL", cfg.InfluxURL,
		"influxBucket", cfg.InfluxBucket,
	)
	if cfg.Token == "" {
		slog.Warn("COLLECTOR_TOKEN is empty; uploads are accepted without authentication")
	}

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	if err := ping(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("database connection successful")

	var sinks []collector.Sink
	if cfg.MQTTBroker != "" {
		pub := mqtt.NewPublisher(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
		})
		defer pub.Disconnect()

		// A broker that is down at startup must not keep the API from serving.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := pub.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		sinks = append(sinks, pub)
	}
	if cfg.InfluxURL != "" {
		w := influx.NewWriter(influx.Options{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		defer w.Close()
		sinks = append(sinks, w)
	}

	mux := http.NewServeMux()
	collector.RegisterFeature(mux, dbConn, cfg.Token, sinks...)
	httpapi.RegisterHealthz(mux, func(ctx context.Context) error { return ping(ctx, dbConn) })

	return httpapi.Serve(ctx, httpapi.NewServer(cfg.HTTPAddr, mux))
}

func ping(ctx context.Context, dbConn *sql.DB) error {
	var ok int
	if err := dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	return nil
}
