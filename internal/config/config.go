package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
)

/*
адрес и порт запуска сервиса: переменная окружения RUN_ADDRESS или флаг -a;
адрес подключения к базе данных: переменная окружения DATABASE_URI или флаг -d;
адрес API платёжного шлюза: переменная окружения RAZORPAY_API_URL или флаг -r.
*/

type ServerConfig struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseDSN string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	RazorpayAPIURL        string        `env:"RAZORPAY_API_URL"`
	RazorpayKeyID         string        `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `env:"RAZORPAY_WEBHOOK_SECRET"`
	GatewayTimeout        time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	OrderPrefix           string        `env:"ORDER_PREFIX" envDefault:"DH-ECOM-"`
	InvoicePrefix         string        `env:"INVOICE_PREFIX" envDefault:"DH-INV-"`
	SequenceWidth         int           `env:"SEQUENCE_WIDTH" envDefault:"4"`
	SequenceLookupTimeout time.Duration `env:"SEQUENCE_LOOKUP_TIMEOUT" envDefault:"2s"`

	TamilNaduShippingRate  float64 `env:"TN_SHIPPING_RATE" envDefault:"50"`
	OtherStateShippingRate float64 `env:"OTHER_STATE_SHIPPING_RATE" envDefault:"100"`

	PendingOrderTTL time.Duration `env:"PENDING_ORDER_TTL" envDefault:"24h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`

	SMSAPIURL           string   `env:"SMS_API_URL"`
	WhatsAppAPIURL      string   `env:"WHATSAPP_API_URL"`
	NotifyAPIKey        string   `env:"NOTIFY_API_KEY"`
	NotifyRatePerSecond float64  `env:"NOTIFY_RATE_PER_SECOND" envDefault:"5"`
	NotifyQueueSize     int      `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyWorkers       int      `env:"NOTIFY_WORKERS" envDefault:"2"`
	KafkaBrokers        []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrderTopic     string   `env:"KAFKA_ORDER_TOPIC" envDefault:"order-finalized"`
}

func NewConfig() (*ServerConfig, error) {
	// .env is optional, real environment always wins
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded")
	}

	var params ServerConfig
	err := env.Parse(&params)
	if err != nil {
		return nil, err
	}

	var commandLineParams ServerConfig

	flag.StringVar(&commandLineParams.RunAddress, "a", "localhost:8080", "Base address to listen on")
	flag.StringVar(&commandLineParams.RazorpayAPIURL, "r", "https://api.razorpay.com", "Payment gateway API address")
	flag.StringVar(&commandLineParams.DatabaseDSN, "d", "postgres://postgres@localhost:5432/storefront?sslmode=disable", "Database DSN")
	flag.Parse()

	if params.RunAddress == "" {
		params.RunAddress = commandLineParams.RunAddress
	}
	if params.RazorpayAPIURL == "" {
		params.RazorpayAPIURL = commandLineParams.RazorpayAPIURL
	}
	if params.DatabaseDSN == "" {
		params.DatabaseDSN = commandLineParams.DatabaseDSN
	}

	if err := params.validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

func (c *ServerConfig) validate() error {
	if c.SequenceWidth < 1 {
		return fmt.Errorf("SEQUENCE_WIDTH must be positive, got %d", c.SequenceWidth)
	}
	if c.OrderPrefix == c.InvoicePrefix {
		return fmt.Errorf("order and invoice prefixes must differ")
	}
	if c.PendingOrderTTL <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("PENDING_ORDER_TTL and SWEEP_INTERVAL must be positive")
	}
	if c.NotifyQueueSize < 1 || c.NotifyWorkers < 1 {
		return fmt.Errorf("notification queue size and workers must be positive")
	}
	return nil
}
