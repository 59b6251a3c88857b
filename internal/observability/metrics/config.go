package metrics

// Config carries the service identity stamped on every instrument.
type Config struct {
	ServiceName string
	Environment string
}
