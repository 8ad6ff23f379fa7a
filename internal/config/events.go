package config

type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

func loadEventsConfig() *EventsConfig {
	return &EventsConfig{
		AMQPURL:  getEnv("AMQP_URL", ""),
		Exchange: getEnv("AMQP_EXCHANGE", "rescuelink.events"),
	}
}
