package config

import "strings"

type NotifyConfig interface {
	GetKafkaBrokers() []string
	GetKafkaTopic() string
}

type Notify struct{}

var _ NotifyConfig = Notify{}

// GetKafkaBrokers returns the comma separated KAFKA_BROKERS list.
// No brokers means notifications are discarded.
func (Notify) GetKafkaBrokers() []string {
	raw := GetEnv("KAFKA_BROKERS", "")
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (Notify) GetKafkaTopic() string {
	return GetEnv("KAFKA_TOPIC", "hr.notifications")
}
