package config

const (
	EnvPrefix = "brightstock"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRIGHTSTOCK_DB_DSN"
	EnvDBHost = "BRIGHTSTOCK_DB_HOST"
	EnvDBUser = "BRIGHTSTOCK_DB_USER"
	EnvDBName = "BRIGHTSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
