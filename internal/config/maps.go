package config

import "time"

type MapsConfig struct {
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
}

type GoogleMapsConfig struct {
	APIKey         string        `yaml:"api_key"`
	GeocodeTimeout time.Duration `yaml:"geocode_timeout"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		GoogleMaps: &GoogleMapsConfig{
			APIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
			GeocodeTimeout: getEnvAsDuration("GOOGLE_MAPS_GEOCODE_TIMEOUT", 3*time.Second),
		},
	}
}
