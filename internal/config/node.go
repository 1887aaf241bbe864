package config

import "fmt"

// Node configures the sensor node process. Domain settings (credentials,
// thresholds, timing) live in the settings file named by SettingsPath.
type Node struct {
	Base

	SettingsPath string

	I2CBus        string
	BME280Address uint16
	ADCAddress    uint16
	ADCChannel    int
	StatusPin     string
	WiFiIface     string
	WPACli        string

	// SleepCommand is run to power down between cycles, with {seconds}
	// and {millis} substituted. Empty means sleep in-process.
	SleepCommand string

	// DryRun swaps the hardware and radio for in-memory stand-ins.
	DryRun bool
}

func LoadNodeFromEnv() (Node, error) {
	base, err := loadBase()
	if err != nil {
		return Node{}, err
	}

	bmeAddr, err := envUint16("BME280_ADDRESS", "0x76")
	if err != nil {
		return Node{}, err
	}
	adcAddr, err := envUint16("ADC_ADDRESS", "0x48")
	if err != nil {
		return Node{}, err
	}
	adcChannel, err := envInt("ADC_CHANNEL", 0)
	if err != nil {
		return Node{}, err
	}
	if adcChannel < 0 || adcChannel > 3 {
		return Node{}, fmt.Errorf("ADC_CHANNEL must be 0..3, got %d", adcChannel)
	}
	dryRun, err := envBool("DRY_RUN", false)
	if err != nil {
		return Node{}, err
	}

	return Node{
		Base:          base,
		SettingsPath:  envString("NODE_CONFIG", "conf.json"),
		I2CBus:        envString("I2C_BUS", ""),
		BME280Address: bmeAddr,
		ADCAddress:    adcAddr,
		ADCChannel:    adcChannel,
		StatusPin:     envString("STATUS_PIN", "GPIO18"),
		WiFiIface:     envString("WIFI_IFACE", "wlan0"),
		WPACli:        envString("WPA_CLI", "wpa_cli"),
		SleepCommand:  envString("SLEEP_COMMAND", ""),
		DryRun:        dryRun,
	}, nil
}
