package server

import "time"

type Config struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8000"`
	RequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	// SecureCookie marks the session cookie Secure; enable behind TLS.
	SecureCookie bool `envconfig:"HTTP_SECURE_COOKIE" default:"false"`
}
