package config

import (
	"flag"
	"os"
	"strings"
	"time"

	auditConfig "github.com/kargopost/orderwizard/internal/audit/config"
	handlerConfig "github.com/kargopost/orderwizard/internal/handler/config"
	loggerConfig "github.com/kargopost/orderwizard/internal/logger/config"
	metricsConfig "github.com/kargopost/orderwizard/internal/metrics/config"
	refdataConfig "github.com/kargopost/orderwizard/internal/refdata/config"
	storeConfig "github.com/kargopost/orderwizard/internal/store/config"
	submitConfig "github.com/kargopost/orderwizard/internal/submit/config"
	wizardConfig "github.com/kargopost/orderwizard/internal/wizard/config"
)

type Config struct {
	Handler handlerConfig.Config
	Wizard  wizardConfig.Config
	Refdata refdataConfig.Config
	Metrics metricsConfig.Config
	Submit  submitConfig.Config
	Store   storeConfig.Config
	Audit   auditConfig.Config
	Logger  loggerConfig.Config

	ContactsAddr string
	TokenSecret  string
	StaffLogin   string
	StaffPass    string
}

func GetConfig() Config {
	serverAddr := flag.String("a", ":8080", "wizard server address")
	refdataAddr := flag.String("r", "http://localhost:8081", "reference data service address")
	metricsAddr := flag.String("m", "http://localhost:8082", "derived metrics service address")
	ordersAddr := flag.String("o", "http://localhost:8083", "order service address")
	contactsAddr := flag.String("c", "http://localhost:8084", "contacts service address")
	dbDsn := flag.String("d", "", "journal database dsn")
	logLevel := flag.String("l", "info", "log level")
	flag.Parse()

	// переменные окружения сильнее флагов
	sessionTTL, err := time.ParseDuration(getEnv("WIZARD_SESSION_TTL", "30m"))
	if err != nil {
		sessionTTL = 30 * time.Minute
	}

	var brokers []string
	if brokersStr := getEnv("KAFKA_BROKERS", ""); brokersStr != "" {
		brokers = strings.Split(brokersStr, ",")
	}

	return Config{
		Handler: handlerConfig.Config{
			ServerAddr: getEnv("APP_ADDR", *serverAddr),
		},
		Wizard: wizardConfig.Config{
			SessionTTL: sessionTTL,
		},
		Refdata: refdataConfig.Config{
			ServiceAddr: getEnv("REFDATA_ADDR", *refdataAddr),
		},
		Metrics: metricsConfig.Config{
			ServiceAddr: getEnv("METRICS_ADDR", *metricsAddr),
		},
		Submit: submitConfig.Config{
			ServiceAddr: getEnv("ORDERS_ADDR", *ordersAddr),
		},
		Store: storeConfig.Config{
			DBDsn: getEnv("APP_DSN", *dbDsn),
		},
		Audit: auditConfig.Config{
			KafkaBrokers: brokers,
			KafkaTopic:   getEnv("KAFKA_TOPIC", "order-submissions"),
		},
		Logger: loggerConfig.Config{
			LogLevel: getEnv("LOG_LEVEL", *logLevel),
		},
		ContactsAddr: getEnv("CONTACTS_ADDR", *contactsAddr),
		TokenSecret:  getEnv("TOKEN_SECRET", "orderwizard-dev-secret"),
		StaffLogin:   getEnv("STAFF_LOGIN", "admin"),
		StaffPass:    getEnv("STAFF_PASS", "secret"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
