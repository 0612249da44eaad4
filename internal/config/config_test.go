package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.App.Port != "3000" {
		t.Errorf("port = %q, want 3000", cfg.App.Port)
	}
	if cfg.Database.TxTimeout != 10*time.Second {
		t.Errorf("tx timeout = %v, want 10s", cfg.Database.TxTimeout)
	}
	if cfg.Kafka.Enabled() {
		t.Error("kafka enabled without brokers")
	}
	if cfg.Auth.AllowRegistration {
		t.Error("self registration enabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_TX_TIMEOUT", "2s")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CHECKOUT_BURST", "3")
	t.Setenv("AUTH_ALLOW_REGISTRATION", "true")

	cfg := Load()

	if cfg.App.Port != "8080" {
		t.Errorf("port = %q", cfg.App.Port)
	}
	if cfg.Database.TxTimeout != 2*time.Second {
		t.Errorf("tx timeout = %v", cfg.Database.TxTimeout)
	}
	if cfg.JWT.Expiry != 2*time.Hour {
		t.Errorf("jwt expiry = %v", cfg.JWT.Expiry)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Checkout.Burst != 3 {
		t.Errorf("burst = %d", cfg.Checkout.Burst)
	}
	if !cfg.Auth.AllowRegistration {
		t.Error("registration not enabled from env")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", Name: "pos", User: "u", Password: "p", SSLMode: "disable", Timezone: "UTC"}
	want := "host=db user=u password=p dbname=pos port=5432 sslmode=disable TimeZone=UTC"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	c.URL = "postgres://u:p@db/pos"
	if got := c.DSN(); got != c.URL {
		t.Errorf("DSN = %q, want URL", got)
	}
}
