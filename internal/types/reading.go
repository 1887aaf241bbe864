package types

import "time"

// Reading is the body the node uploads once per wake cycle.
type Reading struct {
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
	Humidity    float64 `json:"humidity"`
	Battery     float64 `json:"battery"`
}

// StoredReading is a Reading as the collector persisted it.
type StoredReading struct {
	ID          int64     `json:"id"`
	DeviceLabel string    `json:"device_label"`
	Timestamp   time.Time `json:"timestamp"`
	Reading
}

// Variables lists the per-reading value names the listing endpoint accepts.
var Variables = []string{"temperature", "pressure", "humidity", "battery"}

// Value returns the named variable of r.
func (r Reading) Value(variable string) (float64, bool) {
	switch variable {
	case "temperature":
		return r.Temperature, true
	case "pressure":
		return r.Pressure, true
	case "humidity":
		return r.Humidity, true
	case "battery":
		return r.Battery, true
	default:
		return 0, false
	}
}

// Value is one entry of a Ubidots-style value listing. Timestamp is in
// milliseconds since the Unix epoch.
type Value struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// ValuesPage is the Ubidots-style value listing, newest first.
type ValuesPage struct {
	Count   int     `json:"count"`
	Results []Value `json:"results"`
}

// Telemetry is the message published to stations/<label>/telemetry.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Battery     *float64  `json:"battery_v,omitempty"`
}

func TelemetryFrom(sr StoredReading) Telemetry {
	t, h, p, b := sr.Temperature, sr.Humidity, sr.Pressure, sr.Battery
	return Telemetry{
		StationID:   sr.DeviceLabel,
		Timestamp:   sr.Timestamp,
		Temperature: &t,
		Humidity:    &h,
		Pressure:    &p,
		Battery:     &b,
	}
}
