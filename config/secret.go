package config

type TokenSecretData struct {
	Token string `json:"token"`
}

type PostgresSecretData struct {
	ConnectionString string `json:"connectionString"`
}
