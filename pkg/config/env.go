package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "THRIFTLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "THRIFTLINE_DB_DSN"
	EnvDBHost = "THRIFTLINE_DB_HOST"
	EnvDBUser = "THRIFTLINE_DB_USER"
	EnvDBName = "THRIFTLINE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
