package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "PRICING"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "PRICING_APP_ENV"
	EnvPort     = "PRICING_APP_PORT"
	EnvRedisURL = "PRICING_REDIS_URL"

	EnvDBDSN      = "PRICING_DB_DSN"
	EnvDBHost     = "PRICING_DB_HOST"
	EnvDBPort     = "PRICING_DB_PORT"
	EnvDBUser     = "PRICING_DB_USER"
	EnvDBPassword = "PRICING_DB_PASSWORD"
	EnvDBName     = "PRICING_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
