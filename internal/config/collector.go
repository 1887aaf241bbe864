package config

import (
	"fmt"
	"time"
)

type Collector struct {
	Base
	HTTPAddr string

	// Token is compared with the X-Auth-Token header of uploads and the
	// token query parameter of value listings. Empty disables the check.
	Token string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	LogSQL                bool

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func LoadCollectorFromEnv() (Collector, error) {
	base, err := loadBase()
	if err != nil {
		return Collector{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Collector{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Collector{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Collector{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Collector{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Collector{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Collector{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	return Collector{
		Base:                  base,
		HTTPAddr:              envString("HTTP_ADDR", ":5000"),
		Token:                 envString("COLLECTOR_TOKEN", ""),
		SQLiteDriver:          envString("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             envString("DB_DSN", ""),
		SQLitePath:            envString("SQLITE_PATH", "data/envdata.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		LogSQL:                logSQL,
		MQTTBroker:            envString("MQTT_BROKER", ""),
		MQTTPort:              mqttPort,
		MQTTClientID:          envString("MQTT_CLIENT_ID", "env-monitor-collector"),
		InfluxURL:             envString("INFLUX_URL", ""),
		InfluxToken:           envString("INFLUX_TOKEN", ""),
		InfluxOrg:             envString("INFLUX_ORG", ""),
		InfluxBucket:          envString("INFLUX_BUCKET", "envdata"),
	}, nil
}
