package config

const EnvPrefix = "SHOPEAZY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ReservationBackendRedis = "redis"
	ReservationBackendSQL   = "sql"
)

const (
	BrokerKafka  = "kafka"
	BrokerPubSub = "pubsub"
	BrokerAMQP   = "amqp"
)

const (
	EnvAppEnv             = "SHOPEAZY_APP_ENV"
	EnvPort               = "SHOPEAZY_APP_PORT"
	EnvLogLevel           = "SHOPEAZY_LOG_LEVEL"
	EnvDBDSN              = "SHOPEAZY_DB_DSN"
	EnvDBHost             = "SHOPEAZY_DB_HOST"
	EnvDBUser             = "SHOPEAZY_DB_USER"
	EnvDBName             = "SHOPEAZY_DB_NAME"
	EnvDBPassword         = "SHOPEAZY_DB_PASSWORD"
	EnvRedisURL           = "SHOPEAZY_REDIS_URL"
	EnvJWTSecret          = "SHOPEAZY_JWT_SECRET"
	EnvJWTIssuer          = "SHOPEAZY_JWT_ISSUER"
	EnvReservationBackend = "SHOPEAZY_RESERVATION_BACKEND"
	EnvReservationTimeout = "SHOPEAZY_RESERVATION_TIMEOUT_MINUTES"
	EnvOutboxBroker       = "SHOPEAZY_OUTBOX_BROKER"
	EnvKafkaBrokers       = "SHOPEAZY_KAFKA_BROKERS"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
