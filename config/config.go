/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5001"
	DEFAULT_MONITORING_PORT = "5004"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"TLR_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"TLR_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"TLR_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"TLR_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"TLR_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"TLR_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"TLR_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"TLR_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"TLR_REDIS_SKIP_TLS_VERIFY"`
}

// QueueConfig names one asynq queue per inbound event topic.
type QueueConfig struct {
	ItemQueue              string `json:"item_queue" envconfig:"TLR_QUEUE_ITEM"`
	LoanQueue              string `json:"loan_queue" envconfig:"TLR_QUEUE_LOAN"`
	RequestQueue           string `json:"request_queue" envconfig:"TLR_QUEUE_REQUEST"`
	RequestQueueReordering string `json:"request_queue_reordering" envconfig:"TLR_QUEUE_REQUEST_REORDERING"`
	Concurrency            int    `json:"concurrency" envconfig:"TLR_QUEUE_CONCURRENCY"`
	MaxRetryAttempts       int    `json:"max_retry_attempts" envconfig:"TLR_QUEUE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort         string `json:"monitoring_port" envconfig:"TLR_QUEUE_MONITORING_PORT"`
}

// OkapiConfig points at the gateway that fronts every tenant's REST modules.
type OkapiConfig struct {
	Url        string `json:"url" envconfig:"TLR_OKAPI_URL"`
	Token      string `json:"token" envconfig:"TLR_OKAPI_TOKEN"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"TLR_OKAPI_TIMEOUT_SEC"`
}

type ConsortiumConfig struct {
	CentralTenantID        string   `json:"central_tenant_id" envconfig:"TLR_CENTRAL_TENANT_ID"`
	ExcludedLendingTenants []string `json:"excluded_lending_tenants" envconfig:"TLR_EXCLUDED_LENDING_TENANTS"`
	SettingsCacheTTLSec    int      `json:"settings_cache_ttl_sec" envconfig:"TLR_SETTINGS_CACHE_TTL_SEC"`
	FanOutTimeoutSec       int      `json:"fan_out_timeout_sec" envconfig:"TLR_FAN_OUT_TIMEOUT_SEC"`
	FanOutLimit            int      `json:"fan_out_limit" envconfig:"TLR_FAN_OUT_LIMIT"`
	LockTimeoutSec         int      `json:"lock_timeout_sec" envconfig:"TLR_LOCK_TIMEOUT_SEC"`
	LockWaitTimeoutSec     int      `json:"lock_wait_timeout_sec" envconfig:"TLR_LOCK_WAIT_TIMEOUT_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TLR_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TLR_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TLR_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"TLR_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"TLR_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"TLR_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Okapi           OkapiConfig      `json:"okapi"`
	Consortium      ConsortiumConfig `json:"consortium"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tlr", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tlr.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "TLR Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Okapi.Url == "" {
		log.Println("Error: Okapi URL is empty. It's a required field.")
		return errors.New("okapi URL is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Okapi.Url = strings.TrimRight(strings.TrimSpace(cnf.Okapi.Url), "/")
	cnf.Consortium.CentralTenantID = strings.TrimSpace(cnf.Consortium.CentralTenantID)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.Queue.setDefaults()
	cnf.Consortium.setDefaults()

	if cnf.Okapi.TimeoutSec == 0 {
		cnf.Okapi.TimeoutSec = 30
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (q *QueueConfig) setDefaults() {
	if q.ItemQueue == "" {
		q.ItemQueue = "inventory_item"
	}
	if q.LoanQueue == "" {
		q.LoanQueue = "circulation_loan"
	}
	if q.RequestQueue == "" {
		q.RequestQueue = "circulation_request"
	}
	if q.RequestQueueReordering == "" {
		q.RequestQueueReordering = "circulation_request_queue_reordering"
	}
	if q.Concurrency == 0 {
		q.Concurrency = 4
	}
	if q.MaxRetryAttempts == 0 {
		q.MaxRetryAttempts = 5
	}
	if q.MonitoringPort == "" {
		q.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

func (c *ConsortiumConfig) setDefaults() {
	if c.SettingsCacheTTLSec == 0 {
		c.SettingsCacheTTLSec = 300
	}
	if c.FanOutTimeoutSec == 0 {
		c.FanOutTimeoutSec = 30
	}
	if c.FanOutLimit == 0 {
		c.FanOutLimit = 8
	}
	if c.LockTimeoutSec == 0 {
		c.LockTimeoutSec = 30
	}
	if c.LockWaitTimeoutSec == 0 {
		c.LockWaitTimeoutSec = 10
	}
	for i, t := range c.ExcludedLendingTenants {
		c.ExcludedLendingTenants[i] = strings.TrimSpace(t)
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
